package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/folio/internal/enrichment/book"
)

const (
	openLibraryName    = "OpenLibrary"
	openLibraryBaseURL = "https://openlibrary.org"
)

// OpenLibrary implements book.BatchProvider using the OpenLibrary Books API.
// The bibkeys parameter accepts many ISBNs, so the native batch path is always available.
type OpenLibrary struct {
	*httpClient
}

var _ book.BatchProvider = (*OpenLibrary)(nil)

// NewOpenLibrary creates a new OpenLibrary provider.
func NewOpenLibrary(s Settings) *OpenLibrary {
	return &OpenLibrary{httpClient: newHTTPClient(openLibraryName, openLibraryBaseURL, s)}
}

// Name returns the human-readable name of this provider.
func (p *OpenLibrary) Name() string {
	return openLibraryName
}

// SupportsBatch is always true for OpenLibrary.
func (p *OpenLibrary) SupportsBatch() bool {
	return true
}

// openLibraryBook matches the api/books?jscmd=data response structure.
type openLibraryBook struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Notes      any    `json:"notes"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	Authors []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"authors"`
	Cover struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"cover"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	Identifiers struct {
		ISBN10      []string `json:"isbn_10"`
		ISBN13      []string `json:"isbn_13"`
		OpenLibrary []string `json:"openlibrary"`
	} `json:"identifiers"`
	NumberOfPages int    `json:"number_of_pages"`
	PublishDate   string `json:"publish_date"`
}

// LookupOne fetches a single ISBN.
func (p *OpenLibrary) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	results, err := p.fetch(ctx, []string{isbn})
	if err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	olBook, ok := results["ISBN:"+isbn]
	if !ok {
		return nil, nil
	}
	m := p.toMetadata(isbn, olBook)
	return &m, nil
}

// LookupBatch fetches all isbns with a single bibkeys request.
func (p *OpenLibrary) LookupBatch(ctx context.Context, isbns []string, opts book.BatchOptions) (*book.BatchResponse, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results, err := p.fetch(ctx, isbns)
	if err != nil && err != errNotFound {
		return nil, err
	}

	resp := &book.BatchResponse{
		Results:  make([]book.BatchItem, 0, len(isbns)),
		Total:    len(isbns),
		Provider: openLibraryName,
	}
	for _, isbn := range isbns {
		item := book.BatchItem{Identifier: isbn, Source: openLibraryName}
		if olBook, ok := results["ISBN:"+isbn]; ok {
			m := p.toMetadata(isbn, olBook)
			item.Found = true
			item.Data = &m
			resp.Found++
			resp.Fresh++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp, nil
}

func (p *OpenLibrary) fetch(ctx context.Context, isbns []string) (map[string]openLibraryBook, error) {
	bibkeys := make([]string, len(isbns))
	for i, isbn := range isbns {
		bibkeys[i] = "ISBN:" + isbn
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data",
		p.settings.BaseURL, url.QueryEscape(strings.Join(bibkeys, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var result map[string]openLibraryBook
	if err := p.doJSON(ctx, req, strings.Join(isbns, ","), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *OpenLibrary) toMetadata(isbn string, olBook openLibraryBook) book.Metadata {
	m := book.Metadata{
		CatalogID:   strings.TrimPrefix(olBook.Key, "/books/"),
		Title:       olBook.Title,
		Subtitle:    olBook.Subtitle,
		Description: extractDescription(olBook.Notes),
		PageCount:   olBook.NumberOfPages,
		PublishDate: olBook.PublishDate,
		CoverURL:    firstNonEmpty(olBook.Cover.Large, olBook.Cover.Medium),
		Source:      book.Source{Provider: openLibraryName, FetchedAt: time.Now().UTC()},
	}
	if m.CatalogID == "" && len(olBook.Identifiers.OpenLibrary) > 0 {
		m.CatalogID = olBook.Identifiers.OpenLibrary[0]
	}

	if len(olBook.Publishers) > 0 {
		m.Publisher = olBook.Publishers[0].Name
	}

	for _, author := range olBook.Authors {
		if author.Name != "" {
			m.Authors = append(m.Authors, author.Name)
		}
	}
	for _, subject := range olBook.Subjects {
		if subject.Name != "" {
			m.Categories = append(m.Categories, subject.Name)
		}
	}

	ids := append(append([]string{}, olBook.Identifiers.ISBN13...), olBook.Identifiers.ISBN10...)
	m.ISBN10, m.ISBN13 = splitISBNs(append(ids, isbn)...)

	return m
}
