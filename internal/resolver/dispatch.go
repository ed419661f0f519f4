package resolver

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/folio/internal/breaker"
	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
	"github.com/lepinkainen/folio/internal/isbn"
	"github.com/lepinkainen/folio/internal/ratelimit"
	"github.com/lepinkainen/folio/internal/retry"
	"golang.org/x/sync/errgroup"
)

// invocation is the state owned by one resolve call.
type invocation struct {
	engine   *Engine
	cfg      config.Engine
	col      *collector
	throttle *ratelimit.Throttle
	breaker  *breaker.Breaker
	policy   retry.Policy
}

func (e *Engine) newInvocation(cfg config.Engine, col *collector) *invocation {
	return &invocation{
		engine: e,
		cfg:    cfg,
		col:    col,
		throttle: ratelimit.NewThrottle(e.provider.Name(), ratelimit.ThrottleConfig{
			MaxConcurrent:     cfg.MaxConcurrentRequests,
			RequestsPerSecond: cfg.RateLimitPerSecond,
			RateLimit:         cfg.EnableRateLimiting,
		}),
		breaker: e.breaker(cfg),
		policy:  cfg.RetryPolicy(),
	}
}

func (inv *invocation) providerName() string { return inv.engine.provider.Name() }

// run resolves pending through the selected strategy. A failed native batch
// falls back to fan-out once, for the identifiers it left unresolved.
func (inv *invocation) run(ctx context.Context, pending []string) {
	strategy := SelectStrategy(inv.engine.provider, len(pending), inv.cfg.BatchThreshold)
	slog.Debug("Selected lookup strategy", "provider", inv.providerName(), "strategy", strategy.String(), "identifiers", len(pending))

	if strategy == NativeBatch {
		bp, _ := book.SupportsBatch(inv.engine.provider)
		unresolved, err := inv.batch(ctx, bp, pending)
		if len(unresolved) == 0 {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil && errors.KindOf(err) == errors.CircuitOpen {
			// Individual calls would be rejected the same way.
			for _, id := range unresolved {
				inv.deliver(id, book.Failed("", id, err))
			}
			return
		}
		slog.Warn("Native batch incomplete, falling back to individual lookups",
			"provider", inv.providerName(), "unresolved", len(unresolved), "error", err)
		pending = unresolved
	}

	inv.fanOut(ctx, pending)
}

func (inv *invocation) fanOut(ctx context.Context, ids []string) {
	var g errgroup.Group
	g.SetLimit(inv.cfg.MaxConcurrentRequests)
	for _, id := range ids {
		g.Go(func() error {
			inv.deliver(id, inv.lookupOne(ctx, id))
			return nil
		})
	}
	_ = g.Wait()
}

// deliver records o for id and caches fresh metadata.
func (inv *invocation) deliver(id string, o book.Outcome) {
	if m, ok := o.Metadata(); ok && !m.Source.Cached {
		inv.engine.store(inv.cfg, id, m)
	}
	inv.col.deliver(id, o)
}

// admit checks the breaker and takes a concurrency slot for the whole lookup.
func (inv *invocation) admit(ctx context.Context, id string) (func(), error) {
	if inv.breaker != nil {
		if err := inv.breaker.Check(); err != nil {
			return nil, err
		}
	}
	release, err := inv.throttle.Admit(ctx)
	if err != nil {
		return nil, inv.waitError(ctx, id, err)
	}
	return release, nil
}

// paced waits for a rate token and then makes one guarded provider call.
// Every attempt, retries included, goes through here.
func (inv *invocation) paced(ctx context.Context, id string, timeout time.Duration, call func(ctx context.Context) error) error {
	if err := inv.throttle.Wait(ctx); err != nil {
		return inv.waitError(ctx, id, err)
	}
	return inv.guarded(ctx, timeout, call)
}

// waitError classifies a failed slot or token wait.
func (inv *invocation) waitError(ctx context.Context, id string, err error) error {
	if ctx.Err() != nil {
		return errors.NewLookupError(errors.Cancelled, id, ctx.Err())
	}
	return errors.NewLookupError(errors.Timeout, id, err)
}

// guarded runs one provider call under the breaker, reporting its outcome.
func (inv *invocation) guarded(ctx context.Context, timeout time.Duration, call func(ctx context.Context) error) error {
	report := func(error) {}
	if inv.breaker != nil {
		done, err := inv.breaker.Allow()
		if err != nil {
			return err
		}
		report = done
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := call(callCtx)
	if err != nil && ctx.Err() == nil && stdErrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = errors.NewLookupError(errors.Timeout, "", fmt.Errorf("no response within %s: %w", timeout, err))
	}
	report(err)
	return err
}

// lookupOne resolves a single identifier through breaker, throttle and retry.
// The slot is held across retries; each attempt takes its own rate token.
func (inv *invocation) lookupOne(ctx context.Context, id string) book.Outcome {
	if ctx.Err() != nil {
		return book.Failed("", id, errors.NewLookupError(errors.Cancelled, id, ctx.Err()))
	}

	release, err := inv.admit(ctx, id)
	if err != nil {
		return book.Failed("", id, err)
	}
	defer release()

	var data *book.Metadata
	err = inv.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		return inv.paced(ctx, id, inv.cfg.RequestTimeout, func(ctx context.Context) error {
			m, err := inv.engine.provider.LookupOne(ctx, id)
			if err == nil {
				data = m
			}
			return err
		})
	}, func(attempt int, err error) {
		if err != nil {
			slog.Debug("Lookup attempt failed", "provider", inv.providerName(), "isbn", id, "attempt", attempt, "error", err)
		}
	})

	switch {
	case ctx.Err() != nil && err != nil:
		return book.Failed("", id, errors.NewLookupError(errors.Cancelled, id, ctx.Err()))
	case err != nil:
		return book.Failed("", id, err)
	case data == nil:
		return book.NotFound("", id)
	default:
		return book.Found("", id, inv.fresh(*data))
	}
}

// batch resolves ids with one native request and returns the identifiers it
// could not settle: everything on a request failure, or the items a partial
// or malformed response left open.
func (inv *invocation) batch(ctx context.Context, bp book.BatchProvider, ids []string) ([]string, error) {
	release, err := inv.admit(ctx, "")
	if err != nil {
		return ids, err
	}
	defer release()

	timeout := inv.cfg.RequestTimeout
	opts := book.BatchOptions{IncludeFullMetadata: true, Timeout: timeout}

	var resp *book.BatchResponse
	err = inv.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		return inv.paced(ctx, "", timeout, func(ctx context.Context) error {
			r, err := bp.LookupBatch(ctx, ids, opts)
			if err != nil {
				return err
			}
			if r == nil {
				return errors.NewLookupError(errors.ProviderError, "", stdErrors.New("empty batch response"))
			}
			resp = r
			return nil
		})
	}, nil)
	if err != nil {
		return ids, err
	}

	items := make(map[string]book.BatchItem, len(resp.Results))
	for _, item := range resp.Results {
		items[isbn.Clean(item.Identifier)] = item
	}

	var unresolved []string
	for _, id := range ids {
		item, ok := items[id]
		switch {
		case !ok:
			unresolved = append(unresolved, id)
		case item.Found && item.Data != nil:
			m := *item.Data
			if m.Source.Provider == "" {
				m.Source.Provider = firstNonEmpty(item.Source, resp.Provider, inv.providerName())
			}
			inv.deliver(id, book.Found("", id, inv.fresh(m)))
		case !item.Found && item.Error == "":
			inv.deliver(id, book.NotFound("", id))
		default:
			unresolved = append(unresolved, id)
		}
	}

	slog.Debug("Native batch finished",
		"provider", inv.providerName(),
		"request_id", resp.RequestID,
		"requested", len(ids),
		"found", resp.Found,
		"cached", resp.Cached,
		"partial", resp.Partial,
		"unresolved", len(unresolved))

	if len(unresolved) > 0 {
		return unresolved, fmt.Errorf("batch response left %d of %d identifiers unresolved", len(unresolved), len(ids))
	}
	return nil, nil
}

// fresh stamps provenance on metadata straight from the provider.
func (inv *invocation) fresh(m book.Metadata) book.Metadata {
	m.Source.Cached = false
	if m.Source.Provider == "" {
		m.Source.Provider = inv.providerName()
	}
	if m.Source.FetchedAt.IsZero() {
		m.Source.FetchedAt = time.Now().UTC()
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
