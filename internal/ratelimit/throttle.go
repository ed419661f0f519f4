package ratelimit

import (
	"context"
	"sync"
)

// Throttle combines a concurrency Gate with an optional request-rate Limiter.
// One Throttle belongs to one resolve call; its state is not shared between calls.
//
// The two bounds are taken separately: a lookup holds one slot for its whole
// lifetime, retries included, but every provider call it makes needs its own
// token from Wait.
type Throttle struct {
	gate    *Gate
	limiter *Limiter
}

// ThrottleConfig configures NewThrottle.
type ThrottleConfig struct {
	// MaxConcurrent caps in-flight lookups.
	MaxConcurrent int
	// RequestsPerSecond spaces provider calls when RateLimit is set.
	RequestsPerSecond float64
	RateLimit         bool
}

// NewThrottle builds a throttle for one invocation. The token bucket holds a
// single token so call starts are evenly spaced.
func NewThrottle(name string, cfg ThrottleConfig) *Throttle {
	t := &Throttle{gate: NewGate(cfg.MaxConcurrent)}
	if cfg.RateLimit && cfg.RequestsPerSecond > 0 {
		t.limiter = NewWithBurst(name, cfg.RequestsPerSecond, 1)
	}
	return t
}

// Admit takes a concurrency slot. The returned release must be called once
// the lookup completes; extra calls are no-ops.
func (t *Throttle) Admit(ctx context.Context) (release func(), err error) {
	if err := t.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(t.gate.Release) }, nil
}

// Wait blocks until the next provider call may start. Without rate limiting
// it returns immediately.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.limiter == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

// Limited reports whether calls are rate limited.
func (t *Throttle) Limited() bool { return t.limiter != nil }

// Gate exposes the concurrency gate for inspection.
func (t *Throttle) Gate() *Gate { return t.gate }
