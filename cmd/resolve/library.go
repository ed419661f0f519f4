package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/library"
)

// SaveFound stores every found book that is not already in the library at
// dbPath. Duplicates within outcomes are caught as well.
func SaveFound(ctx context.Context, dbPath string, outcomes []book.Outcome) (added, skipped int, err error) {
	if dbPath == "" {
		return 0, 0, fmt.Errorf("no library database configured (set --library-db or library.dbfile)")
	}

	store, err := library.Open(dbPath)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("Failed to close library database", "error", closeErr)
		}
	}()

	existing, err := store.Load(ctx)
	if err != nil {
		return 0, 0, err
	}

	var fresh []library.Record
	for _, o := range outcomes {
		m, ok := o.Metadata()
		if !ok {
			continue
		}
		if dup, reason := library.Match(m, existing); reason != library.NoMatch {
			slog.Debug("Skipping book already in library", "isbn", o.ISBN, "title", m.Title, "match", reason, "existing_id", dup.ID)
			skipped++
			continue
		}
		rec := library.RecordFromMetadata(m)
		fresh = append(fresh, rec)
		existing = append(existing, rec)
	}

	if len(fresh) == 0 {
		return 0, skipped, nil
	}
	if err := store.Save(ctx, fresh); err != nil {
		return 0, skipped, err
	}
	return len(fresh), skipped, nil
}
