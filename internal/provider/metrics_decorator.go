package provider

import (
	"context"
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	"github.com/allisson/storefront/internal/metrics"
)

// Invoker is the contract the dispatcher depends on.
type Invoker interface {
	Invoke(ctx context.Context, kind dispatchDomain.ActionKind, subjectID int64) dispatchDomain.Outcome
}

// invokerWithMetrics decorates an Invoker with metrics instrumentation.
type invokerWithMetrics struct {
	next    Invoker
	metrics metrics.BusinessMetrics
}

// NewInvokerWithMetrics wraps an Invoker with metrics recording.
func NewInvokerWithMetrics(invoker Invoker, m metrics.BusinessMetrics) Invoker {
	return &invokerWithMetrics{
		next:    invoker,
		metrics: m,
	}
}

// Invoke records the outcome and latency of each provider call.
func (i *invokerWithMetrics) Invoke(
	ctx context.Context,
	kind dispatchDomain.ActionKind,
	subjectID int64,
) dispatchDomain.Outcome {
	start := time.Now()
	outcome := i.next.Invoke(ctx, kind, subjectID)

	status := "delivered"
	if !outcome.Delivered {
		status = "transient_failure"
	}

	i.metrics.RecordOperation(ctx, "provider", string(kind), status)
	i.metrics.RecordDuration(ctx, "provider", string(kind), time.Since(start), status)

	return outcome
}
