package resolver

import (
	"context"
	stdErrors "errors"
	"sync"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
)

var errNoResult = stdErrors.New("provider produced no result")

// collector places outcomes at their input positions and reports progress.
type collector struct {
	inputs    []string
	outcomes  []book.Outcome
	positions map[string][]int

	mu        sync.Mutex
	completed int
	found     int
	progress  ProgressFunc
}

func newCollector(inputs []string, progress ProgressFunc) *collector {
	c := &collector{
		inputs:    inputs,
		outcomes:  make([]book.Outcome, len(inputs)),
		positions: make(map[string][]int),
		progress:  progress,
	}
	c.report()
	return c
}

// addPosition records that input i has canonical form id and reports
// whether id is seen for the first time.
func (c *collector) addPosition(id string, i int) bool {
	_, seen := c.positions[id]
	c.positions[id] = append(c.positions[id], i)
	return !seen
}

// fail resolves one position without a canonical identifier.
func (c *collector) fail(i int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(i, book.Failed(c.inputs[i], "", err))
}

// deliver fans o out to every position of id. Positions already resolved
// keep their outcome. It reports whether anything was placed.
func (c *collector) deliver(id string, o book.Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	placed := false
	for _, i := range c.positions[id] {
		if c.set(i, o.WithInput(c.inputs[i])) {
			placed = true
		}
	}
	return placed
}

// finish fails every unresolved position, as Cancelled when ctx is done.
func (c *collector) finish(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, positions := range c.positions {
		for _, i := range positions {
			if c.outcomes[i].Status() != 0 {
				continue
			}
			err := errors.NewLookupError(errors.ProviderError, id, errNoResult)
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = errors.NewLookupError(errors.Cancelled, id, ctxErr)
			}
			c.set(i, book.Failed(c.inputs[i], id, err))
		}
	}
}

func (c *collector) set(i int, o book.Outcome) bool {
	if c.outcomes[i].Status() != 0 {
		return false
	}
	c.outcomes[i] = o
	c.completed++
	if o.IsFound() {
		c.found++
	}
	c.report()
	return true
}

// report must be called with mu held, or before the collector is shared.
func (c *collector) report() {
	if c.progress != nil {
		c.progress(c.completed, len(c.outcomes), c.found)
	}
}
