package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/storefront/internal/database"
	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
)

// MySQLDeadLetterRepository persists dead letters in MySQL. IDs are stored as BINARY(16).
type MySQLDeadLetterRepository struct {
	db *sql.DB
}

// Create stores a dead letter.
func (m *MySQLDeadLetterRepository) Create(ctx context.Context, deadLetter *dispatchDomain.DeadLetter) error {
	querier := database.GetTx(ctx, m.db)

	id, err := deadLetter.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter id")
	}

	query := `INSERT INTO dispatch_dead_letters
			  (id, kind, subject_id, idempotency_key, last_error, attempt_count, first_failed_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(deadLetter.Kind),
		deadLetter.SubjectID,
		deadLetter.IdempotencyKey,
		deadLetter.LastError,
		deadLetter.AttemptCount,
		deadLetter.FirstFailedAt,
		deadLetter.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.Join(apperrors.ErrUnavailable, err), "failed to create dead letter")
	}

	return nil
}

// List returns dead letters ordered by created_at descending.
func (m *MySQLDeadLetterRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*dispatchDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, kind, subject_id, idempotency_key, last_error, attempt_count, first_failed_at, created_at
			  FROM dispatch_dead_letters
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer func() {
		_ = rows.Close()
	}()

	deadLetters := make([]*dispatchDomain.DeadLetter, 0)
	for rows.Next() {
		var deadLetter dispatchDomain.DeadLetter
		var idBinary []byte
		var kind string

		err := rows.Scan(
			&idBinary,
			&kind,
			&deadLetter.SubjectID,
			&deadLetter.IdempotencyKey,
			&deadLetter.LastError,
			&deadLetter.AttemptCount,
			&deadLetter.FirstFailedAt,
			&deadLetter.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter")
		}

		if err := deadLetter.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal dead letter id")
		}

		deadLetter.Kind = dispatchDomain.ActionKind(kind)
		deadLetters = append(deadLetters, &deadLetter)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}

	return deadLetters, nil
}

// DeleteOlderThan removes dead letters created before olderThan. When dryRun is true
// only the matching rows are counted.
func (m *MySQLDeadLetterRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	if dryRun {
		query := `SELECT COUNT(*) FROM dispatch_dead_letters WHERE created_at < ?`
		var count int64
		if err := querier.QueryRowContext(ctx, query, olderThan).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count dead letters")
		}
		return count, nil
	}

	query := `DELETE FROM dispatch_dead_letters WHERE created_at < ?`
	result, err := querier.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete dead letters")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}

	return count, nil
}

// NewMySQLDeadLetterRepository creates a new MySQL dead-letter repository.
func NewMySQLDeadLetterRepository(db *sql.DB) *MySQLDeadLetterRepository {
	return &MySQLDeadLetterRepository{db: db}
}
