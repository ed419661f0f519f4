package resolver

import (
	"context"
	stdErrors "errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
)

// fakeProvider counts calls and tracks how many run at once.
type fakeProvider struct {
	name  string
	delay time.Duration
	// lookup decides the answer; call counts from 1 per ISBN.
	lookup func(isbn string, call int) (*book.Metadata, error)

	mu       sync.Mutex
	calls    map[string]int
	starts   []time.Time
	total    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func newFakeProvider(lookup func(isbn string, call int) (*book.Metadata, error)) *fakeProvider {
	return &fakeProvider{name: "fake", lookup: lookup, calls: make(map[string]int)}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	p.total.Add(1)
	p.mu.Lock()
	p.calls[isbn]++
	call := p.calls[isbn]
	p.starts = append(p.starts, time.Now())
	p.mu.Unlock()

	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.lookup(isbn, call)
}

func (p *fakeProvider) callsFor(isbn string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[isbn]
}

// startGaps returns the time between consecutive call starts, in order.
func (p *fakeProvider) startGaps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	gaps := make([]time.Duration, 0, len(p.starts))
	for i := 1; i < len(p.starts); i++ {
		gaps = append(gaps, p.starts[i].Sub(p.starts[i-1]))
	}
	return gaps
}

// fakeBatchProvider adds a native batch endpoint.
type fakeBatchProvider struct {
	*fakeProvider
	batchCalls atomic.Int64
	batch      func(ids []string) (*book.BatchResponse, error)
}

func (p *fakeBatchProvider) SupportsBatch() bool { return true }

func (p *fakeBatchProvider) LookupBatch(ctx context.Context, ids []string, _ book.BatchOptions) (*book.BatchResponse, error) {
	p.batchCalls.Add(1)
	p.mu.Lock()
	p.starts = append(p.starts, time.Now())
	p.mu.Unlock()
	return p.batch(ids)
}

// catalog answers like a provider that knows the given ISBNs.
func catalog(known ...string) func(string, int) (*book.Metadata, error) {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	return func(isbn string, _ int) (*book.Metadata, error) {
		if !set[isbn] {
			return nil, nil
		}
		return &book.Metadata{Title: "Book " + isbn, Authors: []string{"Author"}, ISBN13: isbn}, nil
	}
}

func rateLimited(isbn string, retryAfter time.Duration) error {
	return &errors.LookupError{
		Kind:       errors.RateLimited,
		ISBN:       isbn,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
		Err:        errors.NewRateLimitErrorWithRetry("fake rate limit reached", retryAfter),
	}
}

func unavailable(isbn string) error {
	return errors.NewProviderError(isbn, http.StatusServiceUnavailable, stdErrors.New("service unavailable"))
}

// testConfig is the default configuration with short delays.
func testConfig() config.Engine {
	cfg := config.Defaults()
	cfg.RetryDelay = time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

type progressEvent struct{ completed, total, found int }

type progressRecorder struct {
	mu     sync.Mutex
	events []progressEvent
}

func (r *progressRecorder) record(completed, total, found int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, progressEvent{completed, total, found})
}
