// Package resolver turns raw ISBN strings into ordered lookup outcomes.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/folio/internal/breaker"
	"github.com/lepinkainen/folio/internal/cache"
	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
	"github.com/lepinkainen/folio/internal/isbn"
)

// ProgressFunc receives completion updates. Calls are serialized and
// completed never decreases; it is called once with completed == 0 and
// once with completed == total.
type ProgressFunc func(completed, total, found int)

// Engine resolves identifiers against one provider. The cache and breaker
// registry are shared handles; hand the same ones to several engines to
// share provider health and cached records between them.
type Engine struct {
	provider book.Provider
	cache    cache.Cache
	breakers *breaker.Registry
	cfg      config.Engine
}

// New creates an engine. c may be nil to disable caching and breakers may be
// nil to disable circuit breaking regardless of cfg.
func New(provider book.Provider, c cache.Cache, breakers *breaker.Registry, cfg config.Engine) *Engine {
	return &Engine{provider: provider, cache: c, breakers: breakers, cfg: cfg}
}

// Config returns the engine's default configuration.
func (e *Engine) Config() config.Engine { return e.cfg }

// Provider returns the active provider.
func (e *Engine) Provider() book.Provider { return e.provider }

// Resolve looks up identifiers with the engine configuration.
func (e *Engine) Resolve(ctx context.Context, identifiers []string, onProgress ProgressFunc) ([]book.Outcome, error) {
	return e.ResolveWith(ctx, identifiers, e.cfg, onProgress)
}

// ResolveOne resolves a single identifier.
func (e *Engine) ResolveOne(ctx context.Context, identifier string) book.Outcome {
	outcomes, err := e.Resolve(ctx, []string{identifier}, nil)
	if err != nil {
		return book.Failed(identifier, "", err)
	}
	return outcomes[0]
}

// ResolveWith looks up identifiers under cfg. The result has one outcome per
// input, in input order. The only error is a rejected request (invalid
// config or too many identifiers), reported before any lookup starts.
//
// cfg governs this call only: concurrency, rate limiting, timeouts, retries,
// batch size and the Enable* switches. CircuitBreakerThreshold,
// CircuitBreakerTimeout, CacheTTL and CacheMaxEntries are ignored here; they
// belong to the shared registry and cache and were fixed when those were
// built.
func (e *Engine) ResolveWith(ctx context.Context, identifiers []string, cfg config.Engine, onProgress ProgressFunc) ([]book.Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewLookupError(errors.InvalidInput, "", err)
	}
	if len(identifiers) > cfg.MaxBatchSize {
		return nil, errors.NewLookupError(errors.InvalidInput, "",
			fmt.Errorf("%w: %d identifiers, maximum is %d", errors.ErrBatchTooLarge, len(identifiers), cfg.MaxBatchSize))
	}

	start := time.Now()
	col := newCollector(identifiers, onProgress)

	// Normalize and group positions by canonical form.
	var unique []string
	for i, raw := range identifiers {
		id, err := isbn.Normalize(raw)
		if err != nil {
			col.fail(i, err)
			continue
		}
		if col.addPosition(id.Canonical, i) {
			unique = append(unique, id.Canonical)
		}
	}

	pending := unique[:0:0]
	for _, id := range unique {
		if m, ok := e.cached(cfg, id); ok {
			col.deliver(id, book.Found("", id, m))
			continue
		}
		pending = append(pending, id)
	}

	if len(pending) > 0 {
		inv := e.newInvocation(cfg, col)
		inv.run(ctx, pending)
	}

	col.finish(ctx)

	outcomes := col.outcomes
	s := Summarize(outcomes)
	slog.Debug("Resolve finished",
		"provider", e.provider.Name(),
		"total", s.Total,
		"unique", len(unique),
		"found", s.Found,
		"cached", s.Cached,
		"not_found", s.NotFound,
		"failed", s.Failed,
		"duration", time.Since(start))
	return outcomes, nil
}

func (e *Engine) cached(cfg config.Engine, id string) (book.Metadata, bool) {
	if !cfg.EnableCaching || e.cache == nil {
		return book.Metadata{}, false
	}
	return e.cache.Get(id)
}

func (e *Engine) store(cfg config.Engine, id string, m book.Metadata) {
	if !cfg.EnableCaching || e.cache == nil {
		return
	}
	m.Source.Cached = false
	e.cache.Put(id, m)
}

func (e *Engine) breaker(cfg config.Engine) *breaker.Breaker {
	if !cfg.EnableCircuitBreaker || e.breakers == nil {
		return nil
	}
	return e.breakers.Get(e.provider.Name())
}
