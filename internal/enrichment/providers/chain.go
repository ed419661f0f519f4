package providers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lepinkainen/folio/internal/enrichment/book"
)

// Chain asks several providers for the same ISBN and merges their answers by
// priority. Member order is priority order.
type Chain struct {
	members []book.Provider
	merger  book.Merger
}

var _ book.Provider = (*Chain)(nil)

// NewChain builds a Chain over members, highest priority first.
func NewChain(members ...book.Provider) *Chain {
	return &Chain{members: members, merger: book.NewPriorityMerger()}
}

// Name lists the member providers.
func (c *Chain) Name() string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.Name()
	}
	return strings.Join(names, "+")
}

// LookupOne runs every member and merges the results.
// A member failure only surfaces when no member found the book, so a flaky
// secondary catalog cannot turn a hit into a miss.
func (c *Chain) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	results := make([]book.ProviderResult, 0, len(c.members))
	var firstErr error

	for i, p := range c.members {
		data, err := p.LookupOne(ctx, isbn)
		if err != nil {
			slog.Debug("Provider failed", "provider", p.Name(), "isbn", isbn, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if data != nil {
			slog.Debug("Provider returned data", "provider", p.Name(), "isbn", isbn)
			results = append(results, book.ProviderResult{Data: data, Source: p.Name(), Priority: i})
		}
	}

	if merged := c.merger.Merge(results); merged != nil {
		return merged, nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, nil
}
