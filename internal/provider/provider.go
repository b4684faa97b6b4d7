// Package provider implements the gateway to the external services that deliver
// side effects: the email service (abandoned cart scheduling, cancellation and order
// confirmation) and the fulfillment service.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	apperrors "github.com/allisson/storefront/internal/errors"
)

// ErrProviderFailure is returned by a provider call that did not go through.
var ErrProviderFailure = errors.New("provider call failed")

// ErrInvalidFailureRate is returned when a failure rate is outside [0, 1].
var ErrInvalidFailureRate = apperrors.Wrap(apperrors.ErrInvalidInput, "failure rate must be between 0 and 1")

// Provider performs one call to an external service for a subject.
type Provider interface {
	Name() string
	Call(ctx context.Context, subjectID int64) error
}

// SimulatedProvider stands in for an unreliable third party. Each call fails with
// probability failureRate.
type SimulatedProvider struct {
	name        string
	failureRate float64
	latency     time.Duration
	random      func() float64
	logger      *slog.Logger
}

// SimulatedOption configures a SimulatedProvider.
type SimulatedOption func(*SimulatedProvider)

// WithLatency makes every call take d before resolving.
func WithLatency(d time.Duration) SimulatedOption {
	return func(p *SimulatedProvider) {
		p.latency = d
	}
}

// WithRandom replaces the source of randomness. fn must return values in [0, 1).
func WithRandom(fn func() float64) SimulatedOption {
	return func(p *SimulatedProvider) {
		p.random = fn
	}
}

// NewSimulatedProvider creates a provider failing with the given rate.
func NewSimulatedProvider(
	name string,
	failureRate float64,
	logger *slog.Logger,
	opts ...SimulatedOption,
) (*SimulatedProvider, error) {
	if failureRate < 0 || failureRate > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFailureRate, failureRate)
	}

	p := &SimulatedProvider{
		name:        name,
		failureRate: failureRate,
		random:      rand.Float64,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Name returns the provider name.
func (p *SimulatedProvider) Name() string {
	return p.name
}

// Call simulates the remote call.
func (p *SimulatedProvider) Call(ctx context.Context, subjectID int64) error {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if p.fails() {
		return fmt.Errorf("%s: %w", p.name, ErrProviderFailure)
	}

	p.logger.Info("provider call delivered",
		slog.String("provider", p.name),
		slog.Int64("subject_id", subjectID),
	)

	return nil
}

func (p *SimulatedProvider) fails() bool {
	switch p.failureRate {
	case 0:
		return false
	case 1:
		return true
	default:
		return p.random() < p.failureRate
	}
}
