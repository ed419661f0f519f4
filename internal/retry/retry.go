// Package retry re-runs transient provider failures with backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/folio/internal/errors"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// Exponential doubles the delay after every failed attempt.
	Exponential Backoff = iota
	// Fixed waits the same delay between attempts.
	Fixed
)

func (b Backoff) String() string {
	if b == Fixed {
		return "fixed"
	}
	return "exponential"
}

// ParseBackoff accepts "fixed" or "exponential" (the default for "").
func ParseBackoff(s string) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exponential", "exp":
		return Exponential, nil
	case "fixed", "constant":
		return Fixed, nil
	default:
		return Exponential, fmt.Errorf("unknown retry backoff %q", s)
	}
}

const defaultMaxDelay = 30 * time.Second

// Policy describes how many times and how patiently to retry.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values below 1 mean 1.
	Attempts int
	// Delay is the wait after the first failure.
	Delay   time.Duration
	Backoff Backoff
	// MaxDelay caps any single wait, including provider Retry-After hints. Zero means 30s.
	MaxDelay time.Duration
}

// Func is one attempt. attempt counts from 1.
type Func func(ctx context.Context, attempt int) error

// Observer sees the outcome of every attempt, successful or not.
type Observer func(attempt int, err error)

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. It returns the last attempt's error.
func (p Policy) Do(ctx context.Context, fn Func, observe Observer) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return err
		}

		err = fn(ctx, attempt)
		if observe != nil {
			observe(attempt, err)
		}
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) || attempt == attempts {
			return err
		}

		wait := p.Wait(attempt, err)
		slog.Debug("Retrying lookup", "attempt", attempt, "of", attempts, "wait", wait, "error", err)
		if sleepErr := SleepWithContext(ctx, wait); sleepErr != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, sleepErr)
		}
	}
	return err
}

// Wait returns the delay before the attempt following failed attempt n.
// A provider Retry-After hint raises the delay but never beyond MaxDelay.
func (p Policy) Wait(n int, err error) time.Duration {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	d := p.Delay
	if p.Backoff == Exponential {
		for i := 1; i < n && d < maxDelay; i++ {
			d *= 2
		}
	}
	if hint := errors.RetryAfterOf(err); hint > d {
		d = hint
	}
	if d > maxDelay {
		d = maxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
