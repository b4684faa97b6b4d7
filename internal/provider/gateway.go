package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// Gateway routes an action kind to its provider and turns the call result into an
// Outcome. It makes exactly one call per Invoke and never retries; retries belong to the
// scheduler.
type Gateway struct {
	providers map[dispatchDomain.ActionKind]Provider
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// GatewayConfig holds the per-call limits applied by the gateway.
type GatewayConfig struct {
	// Timeout bounds every provider call. Expiry is a transient failure.
	Timeout time.Duration
	// RateLimit caps outbound calls per second across all providers. Zero disables it.
	RateLimit float64
	// RateBurst is the burst size of the outbound limiter.
	RateBurst int
}

// NewGateway creates a gateway over the given providers.
func NewGateway(
	cfg GatewayConfig,
	providers map[dispatchDomain.ActionKind]Provider,
	logger *slog.Logger,
) *Gateway {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Gateway{
		providers: providers,
		timeout:   cfg.Timeout,
		limiter:   limiter,
		logger:    logger,
	}
}

// Invoke performs a single provider call for (kind, subjectID).
func (g *Gateway) Invoke(
	ctx context.Context,
	kind dispatchDomain.ActionKind,
	subjectID int64,
) dispatchDomain.Outcome {
	p, ok := g.providers[kind]
	if !ok {
		return dispatchDomain.TransientFailure(fmt.Sprintf("no provider registered for %s", kind))
	}

	// The call timeout starts once the limiter admits the call.
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return dispatchDomain.TransientFailure(fmt.Sprintf("rate limit wait: %v", err))
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := p.Call(callCtx, subjectID)
	if err == nil {
		return dispatchDomain.Delivered()
	}

	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = fmt.Sprintf("%s: call timed out after %s", p.Name(), g.timeout)
	}

	g.logger.Warn("provider call failed",
		slog.String("provider", p.Name()),
		slog.String("kind", string(kind)),
		slog.Int64("subject_id", subjectID),
		slog.String("reason", reason),
	)

	return dispatchDomain.TransientFailure(reason)
}

// NewDefaultProviders builds the email and fulfillment providers and binds them to the
// action kinds they serve.
func NewDefaultProviders(
	emailFailureRate, fulfillmentFailureRate float64,
	logger *slog.Logger,
	opts ...SimulatedOption,
) (map[dispatchDomain.ActionKind]Provider, error) {
	emailScheduling, err := NewSimulatedProvider("email-scheduling", emailFailureRate, logger, opts...)
	if err != nil {
		return nil, err
	}
	emailCancellation, err := NewSimulatedProvider("email-cancellation", emailFailureRate, logger, opts...)
	if err != nil {
		return nil, err
	}
	emailConfirmation, err := NewSimulatedProvider("email-confirmation", emailFailureRate, logger, opts...)
	if err != nil {
		return nil, err
	}
	fulfillment, err := NewSimulatedProvider("fulfillment", fulfillmentFailureRate, logger, opts...)
	if err != nil {
		return nil, err
	}

	return map[dispatchDomain.ActionKind]Provider{
		dispatchDomain.ScheduleAbandonedCartEmail: emailScheduling,
		dispatchDomain.CancelAbandonedCartEmail:   emailCancellation,
		dispatchDomain.SendOrderConfirmation:      emailConfirmation,
		dispatchDomain.FulfillOrder:               fulfillment,
	}, nil
}
