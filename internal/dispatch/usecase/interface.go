// Package usecase implements the side-effect dispatcher: the retry scheduler that drives
// provider calls against the idempotency ledger, the router that turns change events into
// actions, and dead-letter management.
package usecase

import (
	"context"
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// LedgerRepository is the durable set of completed (kind, subject) pairs.
type LedgerRepository interface {
	HasCompleted(ctx context.Context, kind dispatchDomain.ActionKind, subjectID int64) (bool, error)
	MarkCompleted(ctx context.Context, entry *dispatchDomain.LedgerEntry) error
}

// DeadLetterRepository persists actions that exhausted their retries.
type DeadLetterRepository interface {
	Create(ctx context.Context, deadLetter *dispatchDomain.DeadLetter) error
	List(ctx context.Context, offset, limit int) ([]*dispatchDomain.DeadLetter, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// Invoker performs one provider call for an action.
type Invoker interface {
	Invoke(ctx context.Context, kind dispatchDomain.ActionKind, subjectID int64) dispatchDomain.Outcome
}

// Submitter accepts actions for delivery. settled, when not nil, runs once the action is
// delivered or dead-lettered.
type Submitter interface {
	SubmitTracked(ctx context.Context, action dispatchDomain.DomainAction, settled func()) error
}

// RouterUseCase turns change events into submitted actions.
type RouterUseCase interface {
	// Route classifies one event and submits the resulting action, if any. It reports
	// whether an action was submitted.
	Route(ctx context.Context, event dispatchDomain.ChangeEvent) (bool, error)
	// Run consumes feed until ctx is done or the feed is exhausted.
	Run(ctx context.Context, feed dispatchDomain.ChangeFeed) error
}

// DeadLetterUseCase exposes dead letters for inspection and retention.
type DeadLetterUseCase interface {
	List(ctx context.Context, offset, limit int) ([]*dispatchDomain.DeadLetter, error)
	DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error)
}
