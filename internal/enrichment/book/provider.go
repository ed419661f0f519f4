package book

import (
	"context"
	"time"
)

// Provider is a remote catalog able to resolve one ISBN at a time.
// Each implementation handles its own authentication and transforms the
// catalog's response into Metadata.
type Provider interface {
	// Name returns the human-readable name of the catalog (e.g. "OpenLibrary").
	Name() string

	// LookupOne retrieves metadata for a canonical ISBN.
	// Returns nil, nil when the catalog authoritatively has no match.
	// Returns nil, error for transport, provider and rate limit failures.
	LookupOne(ctx context.Context, isbn string) (*Metadata, error)
}

// BatchProvider is implemented by catalogs that resolve many ISBNs in one
// round trip.
type BatchProvider interface {
	Provider

	// SupportsBatch reports whether the native batch path is usable right now
	// (e.g. an API key is configured).
	SupportsBatch() bool

	// LookupBatch resolves isbns in one call. A transport failure is returned
	// as error; per-identifier failures are reported in the response.
	LookupBatch(ctx context.Context, isbns []string, opts BatchOptions) (*BatchResponse, error)
}

// BatchOptions tunes a native batch call.
type BatchOptions struct {
	// Provider optionally overrides the backend catalog of a proxying service.
	Provider            string
	IncludeFullMetadata bool
	IncludePricing      bool
	Timeout             time.Duration
}

// BatchItem is the per-identifier result inside a BatchResponse.
type BatchItem struct {
	Identifier string
	Found      bool
	Data       *Metadata
	Error      string
	Source     string
}

// BatchResponse is the aggregate result of a native batch call.
type BatchResponse struct {
	Results   []BatchItem
	Total     int
	Found     int
	Cached    int
	Fresh     int
	Provider  string
	RequestID string
	Error     string
	Partial   bool
}

// SupportsBatch reports whether p can take the native batch path.
func SupportsBatch(p Provider) (BatchProvider, bool) {
	bp, ok := p.(BatchProvider)
	if !ok || !bp.SupportsBatch() {
		return nil, false
	}
	return bp, true
}
