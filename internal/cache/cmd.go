package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/viper"
)

func openConfigured() (*SQLite, error) {
	dbPath := viper.GetString("cache.dbfile")
	if dbPath == "" {
		return nil, fmt.Errorf("no persistent cache configured (set cache.dbfile)")
	}
	return OpenSQLite(dbPath, viper.GetDuration("resolver.cache_ttl"))
}

// ClearCmd represents the cache clear subcommand
type ClearCmd struct {
	ExpiredOnly bool `help:"Only remove entries older than the cache TTL" name:"expired"`
}

func (c *ClearCmd) Run() error {
	db, err := openConfigured()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	slog.Info("Clearing cache", "database", db.Path(), "expired_only", c.ExpiredOnly)

	var rows int64
	if c.ExpiredOnly {
		rows, err = db.ClearExpired()
	} else {
		rows, err = db.ClearAll()
	}
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	slog.Info("Cache cleared", "rows_deleted", rows)
	return nil
}

// StatsCmd represents the cache stats subcommand
type StatsCmd struct {
	out io.Writer `kong:"-"`
}

func (s *StatsCmd) Run() error {
	db, err := openConfigured()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	st, err := db.Stats()
	if err != nil {
		return err
	}

	out := s.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "Cache: %s\n", db.Path())
	_, _ = fmt.Fprintf(out, "Entries: %d live, %d expired\n", st.Live, st.Total-st.Live)
	if st.Live > 0 {
		_, _ = fmt.Fprintf(out, "Oldest: %s\nNewest: %s\n", st.Oldest.Format(time.RFC3339), st.Newest.Format(time.RFC3339))
	}

	providers := make([]string, 0, len(st.ByProvider))
	for p := range st.ByProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		name := p
		if name == "" {
			name = "(unknown)"
		}
		_, _ = fmt.Fprintf(out, "  %s: %d\n", name, st.ByProvider[p])
	}
	return nil
}
