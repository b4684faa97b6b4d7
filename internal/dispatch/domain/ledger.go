package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry records that an action has been delivered.
type LedgerEntry struct {
	Kind           ActionKind
	SubjectID      int64
	IdempotencyKey string
	Attempts       int
	CompletedAt    time.Time
}

// RetryState tracks the provider attempts of one pending action.
type RetryState struct {
	AttemptCount  int
	NextAttemptAt time.Time
	LastError     string
	FirstFailedAt time.Time
}

// DeadLetter is an action that exhausted its retries. Dead letters are kept for
// inspection and are never replayed automatically.
type DeadLetter struct {
	ID             uuid.UUID
	Kind           ActionKind
	SubjectID      int64
	IdempotencyKey string
	LastError      string
	AttemptCount   int
	FirstFailedAt  time.Time
	CreatedAt      time.Time
}

// Outcome is the result of a single provider call.
type Outcome struct {
	Delivered bool
	Reason    string
}

// Delivered reports a successful provider call.
func Delivered() Outcome {
	return Outcome{Delivered: true}
}

// TransientFailure reports a failed provider call that may succeed on retry.
func TransientFailure(reason string) Outcome {
	return Outcome{Reason: reason}
}

// ActionStatus is the lifecycle state of an action inside the scheduler.
type ActionStatus string

const (
	StatusPending         ActionStatus = "pending"
	StatusInFlight        ActionStatus = "in_flight"
	StatusAwaitingBackoff ActionStatus = "awaiting_backoff"
	StatusSucceeded       ActionStatus = "succeeded"
	StatusDeadLettered    ActionStatus = "dead_lettered"
)

// Terminal reports whether no further transitions can happen.
func (s ActionStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusDeadLettered
}
