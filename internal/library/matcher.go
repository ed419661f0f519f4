// Package library holds the user's saved books and finds duplicates among them.
package library

import (
	"strings"
	"time"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/isbn"
)

// Record is a book already in the library.
type Record struct {
	ID          int64
	CatalogID   string
	ISBN10      string
	ISBN13      string
	Title       string
	Authors     []string
	Publisher   string
	PublishDate string
	PageCount   int
	Provider    string
	AddedAt     time.Time
}

// RecordFromMetadata converts resolved metadata into a library record.
func RecordFromMetadata(m book.Metadata) Record {
	return Record{
		CatalogID:   m.CatalogID,
		ISBN10:      m.ISBN10,
		ISBN13:      m.ISBN13,
		Title:       m.Title,
		Authors:     append([]string(nil), m.Authors...),
		Publisher:   m.Publisher,
		PublishDate: m.PublishDate,
		PageCount:   m.PageCount,
		Provider:    m.Source.Provider,
	}
}

// MatchReason says which rule matched.
type MatchReason int

const (
	NoMatch MatchReason = iota
	MatchCatalogID
	MatchISBN
	MatchTitleAuthor
)

func (r MatchReason) String() string {
	switch r {
	case MatchCatalogID:
		return "catalog id"
	case MatchISBN:
		return "isbn"
	case MatchTitleAuthor:
		return "title and author"
	default:
		return "none"
	}
}

// FindExisting returns the record candidate duplicates, if any.
// Rules are tried in order across the whole collection: catalog ID, then
// ISBN, then title plus first author.
func FindExisting(candidate book.Metadata, existing []Record) (Record, bool) {
	r, reason := Match(candidate, existing)
	return r, reason != NoMatch
}

// Match is FindExisting that also reports the rule that matched.
func Match(candidate book.Metadata, existing []Record) (Record, MatchReason) {
	if id := strings.TrimSpace(candidate.CatalogID); id != "" {
		for _, r := range existing {
			if strings.TrimSpace(r.CatalogID) == id {
				return r, MatchCatalogID
			}
		}
	}

	if ids := isbnSet(candidate.ISBN10, candidate.ISBN13); len(ids) > 0 {
		for _, r := range existing {
			for _, id := range []string{r.ISBN10, r.ISBN13} {
				if c := isbn.Clean(id); c != "" && ids[c] {
					return r, MatchISBN
				}
			}
		}
	}

	title := normalizeText(candidate.Title)
	author := normalizeText(candidate.PrimaryAuthor())
	if title != "" && author != "" {
		for _, r := range existing {
			if len(r.Authors) == 0 {
				continue
			}
			if normalizeText(r.Title) == title && normalizeText(r.Authors[0]) == author {
				return r, MatchTitleAuthor
			}
		}
	}

	return Record{}, NoMatch
}

// isbnSet returns the cleaned, non-empty identifiers. No ISBN-10/13
// conversion happens, so the two forms of one edition do not match.
func isbnSet(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if c := isbn.Clean(id); c != "" {
			set[c] = true
		}
	}
	return set
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
