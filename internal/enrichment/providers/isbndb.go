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
	isbndbName    = "ISBNdb"
	isbndbBaseURL = "https://api2.isbndb.com"
)

// ISBNdb implements book.BatchProvider for the ISBNdb API.
// Every call needs an API key; the POST /books batch endpoint is used when one is set.
type ISBNdb struct {
	*httpClient
}

var _ book.BatchProvider = (*ISBNdb)(nil)

// NewISBNdb creates a new ISBNdb provider.
func NewISBNdb(s Settings) *ISBNdb {
	return &ISBNdb{httpClient: newHTTPClient(isbndbName, isbndbBaseURL, s)}
}

// Name returns the human-readable name of this provider.
func (p *ISBNdb) Name() string {
	return isbndbName
}

// SupportsBatch reports whether an API key is configured.
func (p *ISBNdb) SupportsBatch() bool {
	return p.settings.APIKey != ""
}

// isbndbBook matches the ISBNdb book structure.
type isbndbBook struct {
	Title         string   `json:"title"`
	TitleLong     string   `json:"title_long"`
	ISBN          string   `json:"isbn"`
	ISBN10        string   `json:"isbn10"`
	ISBN13        string   `json:"isbn13"`
	Publisher     string   `json:"publisher"`
	Language      string   `json:"language"`
	DatePublished string   `json:"date_published"`
	Pages         *int     `json:"pages"`
	Overview      string   `json:"overview"`
	Synopsis      string   `json:"synopsis"`
	Image         string   `json:"image"`
	ImageOriginal string   `json:"image_original"`
	Authors       []string `json:"authors"`
	Subjects      []string `json:"subjects"`
}

type isbndbBookResponse struct {
	Book isbndbBook `json:"book"`
}

type isbndbBatchResponse struct {
	Total     int          `json:"total"`
	Requested int          `json:"requested"`
	Data      []isbndbBook `json:"data"`
}

// LookupOne fetches book data from ISBNdb by ISBN.
func (p *ISBNdb) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	if p.settings.APIKey == "" {
		return nil, fmt.Errorf("ISBNdb API key not configured")
	}

	u := fmt.Sprintf("%s/book/%s", p.settings.BaseURL, url.PathEscape(isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", p.settings.APIKey)

	var result isbndbBookResponse
	if err := p.doJSON(ctx, req, isbn, &result); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	// Check if book is empty
	if result.Book.Title == "" && result.Book.ISBN == "" && result.Book.ISBN13 == "" {
		return nil, nil
	}

	m := toISBNdbMetadata(result.Book)
	return &m, nil
}

// LookupBatch resolves isbns with one POST /books call.
func (p *ISBNdb) LookupBatch(ctx context.Context, isbns []string, opts book.BatchOptions) (*book.BatchResponse, error) {
	if p.settings.APIKey == "" {
		return nil, fmt.Errorf("ISBNdb API key not configured")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("isbns", strings.Join(isbns, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.settings.BaseURL+"/books", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", p.settings.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result isbndbBatchResponse
	if err := p.doJSON(ctx, req, strings.Join(isbns, ","), &result); err != nil && err != errNotFound {
		return nil, err
	}

	byISBN := make(map[string]isbndbBook, len(result.Data))
	for _, b := range result.Data {
		for _, id := range []string{b.ISBN13, b.ISBN10, b.ISBN} {
			if id != "" {
				byISBN[id] = b
			}
		}
	}

	resp := &book.BatchResponse{
		Results:  make([]book.BatchItem, 0, len(isbns)),
		Total:    len(isbns),
		Provider: isbndbName,
	}
	for _, isbn := range isbns {
		item := book.BatchItem{Identifier: isbn, Source: isbndbName}
		if b, ok := byISBN[isbn]; ok {
			m := toISBNdbMetadata(b)
			item.Found = true
			item.Data = &m
			resp.Found++
			resp.Fresh++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp, nil
}

func toISBNdbMetadata(b isbndbBook) book.Metadata {
	m := book.Metadata{
		Title:       firstNonEmpty(b.Title, b.TitleLong),
		Publisher:   b.Publisher,
		Language:    b.Language,
		PublishDate: b.DatePublished,
		CoverURL:    firstNonEmpty(b.ImageOriginal, b.Image),
		// Use synopsis for description if available, otherwise use overview
		Description: firstNonEmpty(b.Synopsis, b.Overview),
		Authors:     b.Authors,
		Source:      book.Source{Provider: isbndbName, FetchedAt: time.Now().UTC()},
	}
	if b.Pages != nil && *b.Pages > 0 {
		m.PageCount = *b.Pages
	}
	m.ISBN10, m.ISBN13 = splitISBNs(b.ISBN13, b.ISBN10, b.ISBN)
	m.CatalogID = m.ISBN13

	// Filter out generic "Subjects" entry
	for _, s := range b.Subjects {
		if s != "" && s != "Subjects" {
			m.Categories = append(m.Categories, s)
		}
	}
	return m
}
