package usecase

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes retry delays: exponential growth from Base by Factor, capped at Max,
// with a symmetric random Jitter fraction.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
	Jitter float64

	random func() float64
}

// DefaultBackoff returns the 1s base, factor 2, 60s cap, ±20% jitter policy.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Factor: 2,
		Max:    60 * time.Second,
		Jitter: 0.2,
	}
}

// Delay returns the wait before the attempt following the given number of failures.
// The result never exceeds Max and is never shorter than previous, so the delays of one
// action form a non-decreasing sequence.
func (b Backoff) Delay(failures int, previous time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}

	raw := float64(b.Base) * math.Pow(b.Factor, float64(failures-1))
	if raw > float64(b.Max) || math.IsInf(raw, 0) || math.IsNaN(raw) {
		raw = float64(b.Max)
	}

	if b.Jitter > 0 {
		random := b.random
		if random == nil {
			random = rand.Float64
		}
		raw *= 1 + b.Jitter*(2*random()-1)
	}

	delay := time.Duration(raw)
	if delay > b.Max {
		delay = b.Max
	}
	if delay < 0 {
		delay = 0
	}
	if delay < previous {
		delay = previous
	}

	return delay
}
