// Package cache memoizes resolved book metadata by canonical ISBN.
package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/folio/internal/enrichment/book"
)

const (
	// DefaultTTL is how long a resolved record stays fresh.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxEntries bounds the in-memory tier.
	DefaultMaxEntries = 1000
	// ProviderName is the provenance tag carried by metadata served from cache.
	ProviderName = "cache"
)

// Cache maps a canonical ISBN to a Metadata snapshot.
// Implementations are safe for concurrent use.
type Cache interface {
	// Get returns a copy of the stored record with Source.Cached set.
	Get(isbn string) (book.Metadata, bool)
	// Put stores or replaces the record for isbn.
	Put(isbn string, m book.Metadata)
	// Clear drops every entry.
	Clear()
	// Size is the number of live entries.
	Size() int
}

// Config selects and sizes the cache.
type Config struct {
	// TTL bounds entry lifetime. Zero means DefaultTTL.
	TTL time.Duration
	// MaxEntries caps the memory tier; zero means unbounded.
	MaxEntries int
	// DBFile enables the persistent SQLite tier when set.
	DBFile string
}

// New builds a memory cache, fronting a SQLite tier when cfg.DBFile is set.
// The returned close function releases the database, if any.
func New(cfg Config) (Cache, func() error, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	mem := NewMemory(cfg.MaxEntries, cfg.TTL)
	if cfg.DBFile == "" {
		return mem, func() error { return nil }, nil
	}

	db, err := OpenSQLite(cfg.DBFile, cfg.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache database: %w", err)
	}
	if n, err := db.ClearExpired(); err != nil {
		slog.Warn("Failed to clear expired cache entries", "error", err)
	} else if n > 0 {
		slog.Debug("Cleared expired cache entries", "count", n)
	}
	return NewTiered(mem, db), db.Close, nil
}

// served marks m as coming from the cache.
func served(m book.Metadata) book.Metadata {
	out := m.Clone()
	out.Source.Cached = true
	if out.Source.Provider == "" {
		out.Source.Provider = ProviderName
	}
	return out
}
