package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	dispatchMocks "github.com/allisson/storefront/internal/dispatch/http/mocks"
)

func TestRunListDeadLetters(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	deadLetters := []*dispatchDomain.DeadLetter{
		{
			ID:             uuid.Must(uuid.NewV7()),
			Kind:           dispatchDomain.FulfillOrder,
			SubjectID:      42,
			IdempotencyKey: "orders:c:100",
			LastError:      "fulfillment: call timed out after 10s",
			AttemptCount:   5,
			FirstFailedAt:  createdAt.Add(-time.Minute),
			CreatedAt:      createdAt,
		},
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return(deadLetters, nil)

		var out bytes.Buffer
		err := RunListDeadLetters(ctx, mockUseCase, &out, 0, 50, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "fulfill_order")
		require.Contains(t, out.String(), "2026-01-02T03:04:05Z")
		require.Contains(t, out.String(), "call timed out")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("List", ctx, 10, 5).Return(deadLetters, nil)

		var out bytes.Buffer
		err := RunListDeadLetters(ctx, mockUseCase, &out, 10, 5, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"subject_id": 42`)
		require.Contains(t, out.String(), `"attempt_count": 5`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("empty", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return([]*dispatchDomain.DeadLetter{}, nil)

		var out bytes.Buffer
		err := RunListDeadLetters(ctx, mockUseCase, &out, 0, 50, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "No dead letters found")
	})

	t.Run("invalid-limit", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		err := RunListDeadLetters(ctx, mockUseCase, &bytes.Buffer{}, 0, 0, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "limit must be between 1 and 1000")
		mockUseCase.AssertNotCalled(t, "List")
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return(nil, errors.New("connection refused"))

		err := RunListDeadLetters(ctx, mockUseCase, &bytes.Buffer{}, 0, 50, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to list dead letters")
	})
}

func TestRunCleanDeadLetters(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	days := 30

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("DeleteOlderThan", ctx, days, false).Return(int64(100), nil)

		var out bytes.Buffer
		err := RunCleanDeadLetters(ctx, mockUseCase, logger, &out, days, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 100 dead letter(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		mockUseCase.On("DeleteOlderThan", ctx, days, true).Return(int64(50), nil)

		var out bytes.Buffer
		err := RunCleanDeadLetters(ctx, mockUseCase, logger, &out, days, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 50`)
		require.Contains(t, out.String(), `"dry_run": true`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-days", func(t *testing.T) {
		mockUseCase := &dispatchMocks.MockDeadLetterUseCase{}
		err := RunCleanDeadLetters(ctx, mockUseCase, logger, &bytes.Buffer{}, -1, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}
