package usecase

import (
	"context"
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	"github.com/allisson/storefront/internal/metrics"
)

// deadLetterUseCaseWithMetrics decorates DeadLetterUseCase with metrics instrumentation.
type deadLetterUseCaseWithMetrics struct {
	next    DeadLetterUseCase
	metrics metrics.BusinessMetrics
}

// NewDeadLetterUseCaseWithMetrics wraps a DeadLetterUseCase with metrics recording.
func NewDeadLetterUseCaseWithMetrics(useCase DeadLetterUseCase, m metrics.BusinessMetrics) DeadLetterUseCase {
	return &deadLetterUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for dead letter listing.
func (d *deadLetterUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*dispatchDomain.DeadLetter, error) {
	start := time.Now()
	deadLetters, err := d.next.List(ctx, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "dispatch", "dead_letter_list", status)
	d.metrics.RecordDuration(ctx, "dispatch", "dead_letter_list", time.Since(start), status)

	return deadLetters, err
}

// DeleteOlderThan records metrics for dead letter cleanup.
func (d *deadLetterUseCaseWithMetrics) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := d.next.DeleteOlderThan(ctx, days, dryRun)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "dispatch", "dead_letter_delete", status)
	d.metrics.RecordDuration(ctx, "dispatch", "dead_letter_delete", time.Since(start), status)

	return count, err
}
