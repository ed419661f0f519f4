package library

import (
	"testing"

	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shelf = []Record{
	{ID: 1, CatalogID: "OL1M", ISBN13: "9780134685991", Title: "Effective Java", Authors: []string{"Joshua Bloch"}},
	{ID: 2, ISBN10: "0-13-235088-2", Title: "Clean Code", Authors: []string{"Robert C. Martin"}},
	{ID: 3, Title: "The Pragmatic Programmer", Authors: []string{"Andrew Hunt", "David Thomas"}},
}

func TestFindExisting(t *testing.T) {
	testCases := []struct {
		name      string
		candidate book.Metadata
		wantID    int64
		wantWhy   MatchReason
	}{
		{
			name:      "catalog id wins over everything",
			candidate: book.Metadata{CatalogID: "OL1M", ISBN13: "9780132350884", Title: "Clean Code", Authors: []string{"Robert C. Martin"}},
			wantID:    1,
			wantWhy:   MatchCatalogID,
		},
		{
			name:      "isbn beats differing title and author",
			candidate: book.Metadata{ISBN13: "978-0-13-468599-1", Title: "Something Else", Authors: []string{"Nobody"}},
			wantID:    1,
			wantWhy:   MatchISBN,
		},
		{
			name:      "isbn with formatting on the stored side",
			candidate: book.Metadata{ISBN10: "0132350882"},
			wantID:    2,
			wantWhy:   MatchISBN,
		},
		{
			name:      "isbn priority over an earlier title match",
			candidate: book.Metadata{ISBN10: "0132350882", Title: "Effective Java", Authors: []string{"Joshua Bloch"}},
			wantID:    2,
			wantWhy:   MatchISBN,
		},
		{
			name:      "title and first author, case and space insensitive",
			candidate: book.Metadata{Title: "  the pragmatic PROGRAMMER ", Authors: []string{"andrew hunt"}},
			wantID:    3,
			wantWhy:   MatchTitleAuthor,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, why := Match(tc.candidate, shelf)
			assert.Equal(t, tc.wantWhy, why)
			assert.Equal(t, tc.wantID, r.ID)

			found, ok := FindExisting(tc.candidate, shelf)
			require.True(t, ok)
			assert.Equal(t, tc.wantID, found.ID)
		})
	}
}

func TestFindExistingNoMatch(t *testing.T) {
	testCases := []struct {
		name      string
		candidate book.Metadata
	}{
		{"similar title, different isbn and author", book.Metadata{ISBN13: "9780000000000", Title: "Effective Java 2", Authors: []string{"Someone Else"}}},
		{"same title, different author", book.Metadata{Title: "Effective Java", Authors: []string{"Someone Else"}}},
		{"second author only", book.Metadata{Title: "The Pragmatic Programmer", Authors: []string{"David Thomas"}}},
		{"isbn-10 and isbn-13 of one edition are not converted", book.Metadata{ISBN10: "0134685997"}},
		{"title without author", book.Metadata{Title: "Clean Code"}},
		{"empty candidate", book.Metadata{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := FindExisting(tc.candidate, shelf)
			assert.False(t, ok)
		})
	}

	_, ok := FindExisting(book.Metadata{ISBN13: "9780134685991"}, nil)
	assert.False(t, ok)
}

func TestRecordFromMetadata(t *testing.T) {
	m := book.Metadata{
		CatalogID: "OL1M",
		Title:     "Effective Java",
		Authors:   []string{"Joshua Bloch"},
		ISBN13:    "9780134685991",
		PageCount: 412,
		Source:    book.Source{Provider: "OpenLibrary", Cached: true},
	}
	r := RecordFromMetadata(m)
	m.Authors[0] = "changed"

	assert.Equal(t, "OL1M", r.CatalogID)
	assert.Equal(t, []string{"Joshua Bloch"}, r.Authors)
	assert.Equal(t, 412, r.PageCount)
	assert.Equal(t, "OpenLibrary", r.Provider)
	assert.Equal(t, "catalog id", MatchCatalogID.String())
}
