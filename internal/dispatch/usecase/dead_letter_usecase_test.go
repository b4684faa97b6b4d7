package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
)

// mockDeadLetterRepository is a mock implementation of DeadLetterRepository for testing.
type mockDeadLetterRepository struct {
	mock.Mock
}

func (m *mockDeadLetterRepository) Create(ctx context.Context, deadLetter *dispatchDomain.DeadLetter) error {
	args := m.Called(ctx, deadLetter)
	return args.Error(0)
}

func (m *mockDeadLetterRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*dispatchDomain.DeadLetter, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dispatchDomain.DeadLetter), args.Error(1)
}

func (m *mockDeadLetterRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func TestDeadLetterUseCase_List(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		expected := []*dispatchDomain.DeadLetter{
			{ID: uuid.Must(uuid.NewV7()), Kind: dispatchDomain.FulfillOrder, SubjectID: 1, AttemptCount: 5},
		}
		mockRepo.On("List", ctx, 0, 50).Return(expected, nil).Once()

		useCase := NewDeadLetterUseCase(mockRepo)

		deadLetters, err := useCase.List(ctx, 0, 50)

		assert.NoError(t, err)
		assert.Equal(t, expected, deadLetters)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error_RepositoryFails", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		mockRepo.On("List", ctx, 0, 50).Return(nil, apperrors.ErrUnavailable).Once()

		useCase := NewDeadLetterUseCase(mockRepo)

		deadLetters, err := useCase.List(ctx, 0, 50)

		assert.Nil(t, deadLetters)
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	})
}

func TestDeadLetterUseCase_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DeleteOlderThan", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		mockRepo.On("DeleteOlderThan", ctx, mock.AnythingOfType("time.Time"), false).
			Run(func(args mock.Arguments) {
				cutoff := args.Get(1).(time.Time)
				expected := time.Now().UTC().AddDate(0, 0, -30)
				diff := cutoff.Sub(expected)
				assert.True(t, diff >= -time.Second && diff <= time.Second,
					"cutoff should be approximately 30 days ago")
			}).
			Return(int64(12), nil).
			Once()

		useCase := NewDeadLetterUseCase(mockRepo)

		count, err := useCase.DeleteOlderThan(ctx, 30, false)

		assert.NoError(t, err)
		assert.Equal(t, int64(12), count)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Success_DryRunMode", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		mockRepo.On("DeleteOlderThan", ctx, mock.AnythingOfType("time.Time"), true).Return(int64(3), nil).Once()

		useCase := NewDeadLetterUseCase(mockRepo)

		count, err := useCase.DeleteOlderThan(ctx, 7, true)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error_NegativeDays", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		useCase := NewDeadLetterUseCase(mockRepo)

		_, err := useCase.DeleteOlderThan(ctx, -1, false)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		mockRepo.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_RepositoryFails", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		mockRepo.On("DeleteOlderThan", ctx, mock.AnythingOfType("time.Time"), false).
			Return(int64(0), errors.New("database error")).
			Once()

		useCase := NewDeadLetterUseCase(mockRepo)

		count, err := useCase.DeleteOlderThan(ctx, 30, false)

		assert.Error(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestDeadLetterUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsListSuccess", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}
		mockRepo.On("List", ctx, 0, 10).Return([]*dispatchDomain.DeadLetter{}, nil).Once()

		m := &mockBusinessMetrics{}
		m.On("RecordOperation", ctx, "dispatch", "dead_letter_list", "success").Return().Once()
		m.On("RecordDuration", ctx, "dispatch", "dead_letter_list", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		useCase := NewDeadLetterUseCaseWithMetrics(NewDeadLetterUseCase(mockRepo), m)

		_, err := useCase.List(ctx, 0, 10)

		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("RecordsDeleteError", func(t *testing.T) {
		mockRepo := &mockDeadLetterRepository{}

		m := &mockBusinessMetrics{}
		m.On("RecordOperation", ctx, "dispatch", "dead_letter_delete", "error").Return().Once()
		m.On("RecordDuration", ctx, "dispatch", "dead_letter_delete", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		useCase := NewDeadLetterUseCaseWithMetrics(NewDeadLetterUseCase(mockRepo), m)

		_, err := useCase.DeleteOlderThan(ctx, -5, false)

		assert.Error(t, err)
		m.AssertExpectations(t)
	})
}
