package cache

import (
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	_ "modernc.org/sqlite"
)

// Schema is the persistent cache table. cached_at holds Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS isbn_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL,
	cached_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_isbn_cached_at ON isbn_cache(cached_at);
`

// SQLite persists cached metadata across runs.
type SQLite struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	ttl  time.Duration
	now  func() time.Time
}

var _ Cache = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the cache database at dbPath.
func OpenSQLite(dbPath string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, stdErrors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}
	if _, err := db.Exec(Schema); err != nil {
		closeErr := db.Close()
		return nil, stdErrors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLite{db: db, path: dbPath, ttl: ttl, now: time.Now}, nil
}

// Path is the database file.
func (c *SQLite) Path() string { return c.path }

// Close closes the database connection
func (c *SQLite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *SQLite) cutoff() int64 {
	return c.now().Add(-c.ttl).UnixNano()
}

// Get returns the record for isbn if present and not expired.
// Database errors are logged and reported as a miss.
func (c *SQLite) Get(isbn string) (book.Metadata, bool) {
	m, _, ok := c.GetWithExpiry(isbn)
	return m, ok
}

// GetWithExpiry is Get that also reports when the entry stops being served.
func (c *SQLite) GetWithExpiry(isbn string) (book.Metadata, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var data string
	var cachedAt int64
	err := c.db.QueryRow(`SELECT data, cached_at FROM isbn_cache WHERE cache_key = ?`, isbn).Scan(&data, &cachedAt)
	if err == sql.ErrNoRows {
		return book.Metadata{}, time.Time{}, false
	}
	if err != nil {
		slog.Warn("Failed to query cache", "isbn", isbn, "error", err)
		return book.Metadata{}, time.Time{}, false
	}
	if cachedAt < c.cutoff() {
		slog.Debug("Cache expired", "isbn", isbn, "age", c.now().Sub(time.Unix(0, cachedAt)))
		return book.Metadata{}, time.Time{}, false
	}

	var m book.Metadata
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		slog.Warn("Failed to unmarshal cached data", "isbn", isbn, "error", err)
		return book.Metadata{}, time.Time{}, false
	}
	return served(m), time.Unix(0, cachedAt).Add(c.ttl), true
}

// Put stores m, replacing any previous entry. Failures are logged; a cache
// write never fails a lookup.
func (c *SQLite) Put(isbn string, m book.Metadata) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "isbn", isbn, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO isbn_cache (cache_key, provider, data, cached_at)
		VALUES (?, ?, ?, ?)
	`, isbn, m.Source.Provider, string(data), c.now().UnixNano())
	if err != nil {
		slog.Warn("Failed to cache data", "isbn", isbn, "error", err)
	}
}

// Clear removes every entry.
func (c *SQLite) Clear() {
	if _, err := c.ClearAll(); err != nil {
		slog.Warn("Failed to clear cache", "error", err)
	}
}

// ClearAll removes every entry and reports how many were deleted.
func (c *SQLite) ClearAll() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(`DELETE FROM isbn_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	slog.Debug("Cache cleared", "rows_deleted", rows)
	return rows, nil
}

// ClearExpired removes entries older than the TTL.
func (c *SQLite) ClearExpired() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(`DELETE FROM isbn_cache WHERE cached_at < ?`, c.cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// Size counts live entries.
func (c *SQLite) Size() int {
	st, err := c.Stats()
	if err != nil {
		slog.Warn("Failed to count cache entries", "error", err)
		return 0
	}
	return st.Live
}

// Stats describes the persistent cache.
type Stats struct {
	Total      int
	Live       int
	ByProvider map[string]int
	Oldest     time.Time
	Newest     time.Time
}

// Stats summarizes the table contents.
func (c *SQLite) Stats() (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{ByProvider: make(map[string]int)}
	rows, err := c.db.Query(`SELECT provider, cached_at FROM isbn_cache`)
	if err != nil {
		return st, fmt.Errorf("failed to query cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cutoff := c.cutoff()
	for rows.Next() {
		var provider string
		var cachedAt int64
		if err := rows.Scan(&provider, &cachedAt); err != nil {
			return st, fmt.Errorf("failed to scan cache row: %w", err)
		}
		st.Total++
		if cachedAt < cutoff {
			continue
		}
		st.Live++
		st.ByProvider[provider]++
		at := time.Unix(0, cachedAt)
		if st.Oldest.IsZero() || at.Before(st.Oldest) {
			st.Oldest = at
		}
		if at.After(st.Newest) {
			st.Newest = at
		}
	}
	return st, rows.Err()
}
