package resolver

import (
	"testing"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	outcomes := []book.Outcome{
		book.Found("a", "9780134685991", book.Metadata{Title: "Fresh"}),
		book.Found("b", "0134685997", book.Metadata{Title: "Cached", Source: book.Source{Cached: true}}),
		book.NotFound("c", "9999999999999"),
		book.Failed("d", "", errors.NewInvalidInputError("d", "bad")),
		book.Failed("e", "9780000000000", errors.NewLookupError(errors.CircuitOpen, "", assert.AnError)),
	}

	s := Summarize(outcomes)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.Cached)
	assert.Equal(t, 1, s.Fresh)
	assert.Equal(t, 1, s.NotFound)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.ByKind[errors.InvalidInput])
	assert.Equal(t, 1, s.ByKind[errors.CircuitOpen])

	assert.InDelta(t, 0.4, s.SuccessRate(), 1e-9)
	assert.InDelta(t, 2.0/3.0, s.ResolvedRate(), 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.SuccessRate())
	assert.Zero(t, s.ResolvedRate())
}
