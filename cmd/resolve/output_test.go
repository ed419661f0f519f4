package resolve

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
	"github.com/lepinkainen/folio/internal/resolver"
)

func TestSummaryLine(t *testing.T) {
	s := resolver.Summary{
		Total:    4,
		Found:    2,
		Cached:   1,
		NotFound: 1,
		Failed:   1,
		ByKind:   map[errors.Kind]int{errors.Timeout: 1},
	}

	line := summaryLine(s)
	assert.Contains(t, line, "4 ISBNs")
	assert.Contains(t, line, "2 found")
	assert.Contains(t, line, "1 not found")
	assert.Contains(t, line, "1 failed")
	assert.Contains(t, line, "50% success")
	assert.Contains(t, line, "timeout=1")
}

func TestRenderUnknownFormat(t *testing.T) {
	err := render(nil, "xml", []book.Outcome{book.NotFound("0134685997", "0134685997")})
	assert.Error(t, err)
}

func TestRenderDetailsSkipsEmptyFields(t *testing.T) {
	out := renderDetails(book.Metadata{
		Title:   "Effective Java",
		Authors: []string{"Joshua Bloch"},
		Source:  book.Source{Provider: "OpenLibrary", Cached: true},
	})

	assert.Contains(t, out, "Effective Java")
	assert.Contains(t, out, "OpenLibrary (cached)")
	assert.NotContains(t, out, "Pages")
	assert.NotContains(t, out, "Publisher")
}
