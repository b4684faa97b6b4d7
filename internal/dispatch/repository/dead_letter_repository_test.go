package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
)

var deadLetterColumns = []string{
	"id", "kind", "subject_id", "idempotency_key", "last_error", "attempt_count", "first_failed_at", "created_at",
}

func newDeadLetter() *dispatchDomain.DeadLetter {
	now := time.Now().UTC()
	return &dispatchDomain.DeadLetter{
		ID:             uuid.Must(uuid.NewV7()),
		Kind:           dispatchDomain.FulfillOrder,
		SubjectID:      8,
		IdempotencyKey: "fulfill_order:8:tx",
		LastError:      "provider timeout",
		AttemptCount:   5,
		FirstFailedAt:  now.Add(-time.Minute),
		CreatedAt:      now,
	}
}

func TestPostgreSQLDeadLetterRepository_Create(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`INSERT INTO dispatch_dead_letters`)

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(query).
			WithArgs(
				sqlmock.AnyArg(),
				"fulfill_order",
				int64(8),
				"fulfill_order:8:tx",
				"provider timeout",
				5,
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLDeadLetterRepository(db)
		require.NoError(t, repo.Create(ctx, newDeadLetter()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailureIsUnavailable", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(query).WillReturnError(errors.New("disk full"))

		repo := NewPostgreSQLDeadLetterRepository(db)
		err = repo.Create(ctx, newDeadLetter())

		assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
		assert.Contains(t, err.Error(), "failed to create dead letter")
	})
}

func TestPostgreSQLDeadLetterRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	expected := newDeadLetter()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM dispatch_dead_letters`)).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(deadLetterColumns).AddRow(
			expected.ID.String(),
			"fulfill_order",
			int64(8),
			expected.IdempotencyKey,
			expected.LastError,
			int64(5),
			expected.FirstFailedAt,
			expected.CreatedAt,
		))

	repo := NewPostgreSQLDeadLetterRepository(db)
	deadLetters, err := repo.List(context.Background(), 0, 10)

	require.NoError(t, err)
	require.Len(t, deadLetters, 1)
	assert.Equal(t, expected.ID, deadLetters[0].ID)
	assert.Equal(t, dispatchDomain.FulfillOrder, deadLetters[0].Kind)
	assert.Equal(t, int64(8), deadLetters[0].SubjectID)
	assert.Equal(t, 5, deadLetters[0].AttemptCount)
}

func TestPostgreSQLDeadLetterRepository_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectQuery(regexp.QuoteMeta(`FROM dispatch_dead_letters`)).
		WillReturnRows(sqlmock.NewRows(deadLetterColumns))

	repo := NewPostgreSQLDeadLetterRepository(db)
	deadLetters, err := repo.List(context.Background(), 0, 10)

	require.NoError(t, err)
	assert.NotNil(t, deadLetters)
	assert.Empty(t, deadLetters)
}

func TestPostgreSQLDeadLetterRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	olderThan := time.Now().UTC().AddDate(0, 0, -30)

	t.Run("DryRunCounts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM dispatch_dead_letters WHERE created_at < $1`)).
			WithArgs(olderThan).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

		repo := NewPostgreSQLDeadLetterRepository(db)
		count, err := repo.DeleteOlderThan(ctx, olderThan, true)

		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Deletes", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM dispatch_dead_letters WHERE created_at < $1`)).
			WithArgs(olderThan).
			WillReturnResult(sqlmock.NewResult(0, 3))

		repo := NewPostgreSQLDeadLetterRepository(db)
		count, err := repo.DeleteOlderThan(ctx, olderThan, false)

		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestMySQLDeadLetterRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	deadLetter := newDeadLetter()
	idBinary, err := deadLetter.ID.MarshalBinary()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO dispatch_dead_letters`)).
		WithArgs(
			idBinary,
			"fulfill_order",
			int64(8),
			deadLetter.IdempotencyKey,
			deadLetter.LastError,
			5,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT ? OFFSET ?`)).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(deadLetterColumns).AddRow(
			idBinary,
			"fulfill_order",
			int64(8),
			deadLetter.IdempotencyKey,
			deadLetter.LastError,
			int64(5),
			deadLetter.FirstFailedAt,
			deadLetter.CreatedAt,
		))

	repo := NewMySQLDeadLetterRepository(db)
	require.NoError(t, repo.Create(ctx, deadLetter))

	deadLetters, err := repo.List(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, deadLetters, 1)
	assert.Equal(t, deadLetter.ID, deadLetters[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDeadLetterRepository_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	olderThan := time.Now().UTC().AddDate(0, 0, -7)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM dispatch_dead_letters WHERE created_at < ?`)).
		WithArgs(olderThan).
		WillReturnError(errors.New("lock timeout"))

	repo := NewMySQLDeadLetterRepository(db)
	_, err = repo.DeleteOlderThan(context.Background(), olderThan, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete dead letters")
}
