// Package book defines the canonical book metadata record, the per-identifier
// lookup outcome and the provider capabilities the resolution engine consumes.
package book

import (
	"slices"
	"time"
)

// Source records where a Metadata value came from.
type Source struct {
	// Provider is the catalog that produced the record (e.g. "OpenLibrary").
	Provider string `json:"provider" yaml:"provider"`

	// Cached is true when the record was served from the engine cache.
	Cached bool `json:"cached" yaml:"cached"`

	// FetchedAt is when the provider returned the record.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Metadata is the canonical book record produced by every provider.
// Treat it as immutable: use Clone or WithSource to derive new values.
type Metadata struct {
	// CatalogID is the provider-assigned identifier (edition key, volume ID).
	CatalogID string `json:"catalog_id,omitempty" yaml:"catalog_id,omitempty"`

	Title       string   `json:"title" yaml:"title"`
	Subtitle    string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Authors     []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	ISBN10      string   `json:"isbn10,omitempty" yaml:"isbn10,omitempty"`
	ISBN13      string   `json:"isbn13,omitempty" yaml:"isbn13,omitempty"`
	Publisher   string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PublishDate string   `json:"publish_date,omitempty" yaml:"publish_date,omitempty"`
	PageCount   int      `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	Categories  []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	Language    string   `json:"language,omitempty" yaml:"language,omitempty"`

	Source Source `json:"source" yaml:"source"`
}

// Clone returns a deep copy so callers never share slice backing arrays.
func (m Metadata) Clone() Metadata {
	m.Authors = slices.Clone(m.Authors)
	m.Categories = slices.Clone(m.Categories)
	return m
}

// WithSource returns a copy of m with its provenance replaced.
func (m Metadata) WithSource(src Source) Metadata {
	c := m.Clone()
	c.Source = src
	return c
}

// PrimaryAuthor returns the first listed author or "".
func (m Metadata) PrimaryAuthor() string {
	if len(m.Authors) == 0 {
		return ""
	}
	return m.Authors[0]
}

// IsEmpty reports whether the record carries no bibliographic data at all.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.ISBN10 == "" && m.ISBN13 == "" && m.CatalogID == ""
}
