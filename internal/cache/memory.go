package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lepinkainen/folio/internal/enrichment/book"
)

// Memory is an in-process LRU cache whose entries also expire after a TTL.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// memoryEntry carries an optional deadline tighter than the LRU's own TTL.
type memoryEntry struct {
	m       book.Metadata
	expires time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a cache holding at most maxEntries records (0 is unbounded)
// for at most ttl each (0 never expires).
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](maxEntries, nil, ttl),
		now: time.Now,
	}
}

func (c *Memory) Get(isbn string) (book.Metadata, bool) {
	e, ok := c.lru.Get(isbn)
	if !ok {
		return book.Metadata{}, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.lru.Remove(isbn)
		return book.Metadata{}, false
	}
	return served(e.m), true
}

func (c *Memory) Put(isbn string, m book.Metadata) {
	c.lru.Add(isbn, memoryEntry{m: m.Clone()})
}

// PutUntil stores m so that it expires at expires or after the cache TTL,
// whichever comes first.
func (c *Memory) PutUntil(isbn string, m book.Metadata, expires time.Time) {
	c.lru.Add(isbn, memoryEntry{m: m.Clone(), expires: expires})
}

func (c *Memory) Clear() {
	c.lru.Purge()
}

func (c *Memory) Size() int {
	return c.lru.Len()
}
