// Package breaker guards providers with a circuit breaker shared by every
// resolve call in the process.
package breaker

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/folio/internal/errors"
	"github.com/sony/gobreaker"
)

// Phase is the breaker's coarse state.
type Phase int

const (
	Closed Phase = iota
	Open
	HalfOpen
)

func (p Phase) String() string {
	switch p {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the breaker. Until is set only while Open.
type State struct {
	Phase Phase
	Until time.Time
}

// Settings configures a Breaker.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
}

// DefaultSettings matches the engine defaults.
func DefaultSettings() Settings {
	return Settings{Threshold: 3, Timeout: 30 * time.Second}
}

// Breaker is a named circuit breaker. It is safe for concurrent use.
type Breaker struct {
	name string
	cb   *gobreaker.TwoStepCircuitBreaker

	mu        sync.RWMutex
	openUntil time.Time
	timeout   time.Duration
}

// New creates a closed breaker.
func New(name string, s Settings) *Breaker {
	if s.Threshold < 1 {
		s.Threshold = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultSettings().Timeout
	}

	b := &Breaker{name: name, timeout: s.Timeout}
	threshold := uint32(s.Threshold)
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.onStateChange,
	})
	return b
}

// onStateChange runs under gobreaker's lock; it must not call back into cb.
func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.mu.Lock()
	if to == gobreaker.StateOpen {
		b.openUntil = time.Now().Add(b.timeout)
	} else {
		b.openUntil = time.Time{}
	}
	b.mu.Unlock()

	level := slog.LevelInfo
	if to == gobreaker.StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
}

// Name returns the provider name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State reports the current phase.
func (b *Breaker) State() State {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		b.mu.RLock()
		until := b.openUntil
		b.mu.RUnlock()
		return State{Phase: Open, Until: until}
	case gobreaker.StateHalfOpen:
		return State{Phase: HalfOpen}
	default:
		return State{Phase: Closed}
	}
}

// Allow asks to start a request. On success the caller must invoke done
// exactly once with the request's outcome, as judged by Failure.
// A rejected request gets a CircuitOpen *errors.LookupError.
func (b *Breaker) Allow() (done func(err error), err error) {
	report, err := b.cb.Allow()
	if err != nil {
		if stdErrors.Is(err, gobreaker.ErrOpenState) || stdErrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, b.openError()
		}
		return nil, err
	}
	return func(err error) { report(!Failure(err)) }, nil
}

// Check fails fast with CircuitOpen while the circuit is open, without
// consuming the half-open trial slot.
func (b *Breaker) Check() error {
	if b.cb.State() == gobreaker.StateOpen {
		return b.openError()
	}
	return nil
}

func (b *Breaker) openError() error {
	msg := fmt.Sprintf("circuit open for %s", b.name)
	if st := b.State(); st.Phase == Open && !st.Until.IsZero() {
		msg += fmt.Sprintf(" until %s", st.Until.Format(time.RFC3339))
	}
	return errors.NewLookupError(errors.CircuitOpen, "", stdErrors.New(msg))
}

// Failure reports whether err reflects provider ill health. Not-found
// answers, client errors and cancellation do not count against a provider.
func Failure(err error) bool {
	if err == nil {
		return false
	}
	switch errors.KindOf(err) {
	case errors.NetworkError, errors.Timeout, errors.RateLimited:
		return true
	case errors.ProviderError:
		return errors.IsRetryable(err)
	default:
		return false
	}
}

// Registry hands out one Breaker per provider name. A Registry is meant to
// live as long as the process and be passed to every engine that shares
// provider health.
type Registry struct {
	settings Settings

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry returns an empty registry whose breakers use s.
func NewRegistry(s Settings) *Registry {
	return &Registry{settings: s, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for provider, creating it closed on first use.
func (r *Registry) Get(provider string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	b = New(provider, r.settings)
	r.breakers[provider] = b
	return b
}

// States snapshots every known breaker.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
