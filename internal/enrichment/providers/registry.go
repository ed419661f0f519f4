package providers

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/folio/internal/enrichment/book"
)

// Config selects and configures the active provider.
type Config struct {
	// Name is one of openlibrary, googlebooks, isbndb, catalog or chain.
	Name string

	OpenLibrary Settings
	GoogleBooks Settings
	ISBNdb      Settings
	Catalog     Settings

	// CatalogUpstream is passed to the catalog service as its provider override.
	CatalogUpstream string

	// Chain lists member provider names for Name == "chain", highest priority first.
	Chain []string
}

// New builds the provider named by cfg.Name.
func New(cfg Config) (book.Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = "openlibrary"
	}
	if name == "chain" {
		return newChain(cfg)
	}
	return newSingle(name, cfg)
}

func newSingle(name string, cfg Config) (book.Provider, error) {
	switch name {
	case "openlibrary":
		return NewOpenLibrary(cfg.OpenLibrary), nil
	case "googlebooks", "google":
		return NewGoogleBooks(cfg.GoogleBooks), nil
	case "isbndb":
		if cfg.ISBNdb.APIKey == "" {
			return nil, fmt.Errorf("provider isbndb requires an API key (isbndb.api_key or ISBNDB_API_KEY)")
		}
		return NewISBNdb(cfg.ISBNdb), nil
	case "catalog":
		if cfg.Catalog.BaseURL == "" {
			return nil, fmt.Errorf("provider catalog requires catalog.url")
		}
		return NewCatalog(cfg.Catalog, cfg.CatalogUpstream), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func newChain(cfg Config) (book.Provider, error) {
	names := cfg.Chain
	if len(names) == 0 {
		names = []string{"isbndb", "openlibrary", "googlebooks"}
	}

	members := make([]book.Provider, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "chain" {
			return nil, fmt.Errorf("chain cannot contain itself")
		}
		// ISBNdb is included only if the API key is configured.
		if n == "isbndb" && cfg.ISBNdb.APIKey == "" && len(cfg.Chain) == 0 {
			continue
		}
		p, err := newSingle(n, cfg)
		if err != nil {
			return nil, fmt.Errorf("chain member: %w", err)
		}
		members = append(members, p)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("chain has no usable providers")
	}
	return NewChain(members...), nil
}
