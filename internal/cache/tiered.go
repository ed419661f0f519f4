package cache

import (
	"github.com/lepinkainen/folio/internal/enrichment/book"
)

// Tiered serves from memory first and falls back to the persistent tier,
// promoting hits back into memory for the rest of their persistent lifetime.
type Tiered struct {
	front *Memory
	back  *SQLite
}

var _ Cache = (*Tiered)(nil)

// NewTiered layers front over back.
func NewTiered(front *Memory, back *SQLite) *Tiered {
	return &Tiered{front: front, back: back}
}

func (c *Tiered) Get(isbn string) (book.Metadata, bool) {
	if m, ok := c.front.Get(isbn); ok {
		return m, true
	}
	m, expires, ok := c.back.GetWithExpiry(isbn)
	if !ok {
		return book.Metadata{}, false
	}
	// the promoted copy must not outlive the persistent entry
	stored := m.Clone()
	stored.Source.Cached = false
	c.front.PutUntil(isbn, stored, expires)
	return m, true
}

func (c *Tiered) Put(isbn string, m book.Metadata) {
	c.front.Put(isbn, m)
	c.back.Put(isbn, m)
}

func (c *Tiered) Clear() {
	c.front.Clear()
	c.back.Clear()
}

// Size reports the persistent tier, which holds every entry the memory tier does.
func (c *Tiered) Size() int {
	return c.back.Size()
}
