package domain

import (
	apperrors "github.com/allisson/storefront/internal/errors"
)

// Dispatch errors.
var (
	// ErrAlreadyCompleted is returned when marking an action the ledger already holds.
	ErrAlreadyCompleted = apperrors.Wrap(apperrors.ErrConflict, "action already completed")

	// ErrLedgerUnavailable is returned when the ledger cannot be read or written.
	ErrLedgerUnavailable = apperrors.Wrap(apperrors.ErrUnavailable, "idempotency ledger unavailable")

	// ErrUnknownActionKind is returned for action kinds without a provider.
	ErrUnknownActionKind = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown action kind")

	// ErrInvalidAction is returned for actions that cannot be scheduled.
	ErrInvalidAction = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid action")

	// ErrInvalidChangeEvent is returned when a change log message cannot be decoded.
	ErrInvalidChangeEvent = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid change event")

	// ErrDeadLetterNotFound is returned when a dead letter does not exist.
	ErrDeadLetterNotFound = apperrors.Wrap(apperrors.ErrNotFound, "dead letter not found")

	// ErrSchedulerClosed is returned when submitting to a scheduler that stopped.
	ErrSchedulerClosed = apperrors.Wrap(apperrors.ErrUnavailable, "scheduler closed")
)
