package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/folio/internal/enrichment/book"
)

const catalogName = "Catalog"

// Catalog implements book.BatchProvider for a catalog lookup service that
// proxies one or more upstream catalogs behind single and batch endpoints.
type Catalog struct {
	*httpClient
	// upstream selects the service's backend catalog, empty for its default.
	upstream string
}

var _ book.BatchProvider = (*Catalog)(nil)

// NewCatalog creates a provider for the service at s.BaseURL. upstream is the
// optional backend provider the service should query.
func NewCatalog(s Settings, upstream string) *Catalog {
	return &Catalog{httpClient: newHTTPClient(catalogName, "", s), upstream: upstream}
}

// Name returns the human-readable name of this provider.
func (p *Catalog) Name() string {
	if p.upstream != "" {
		return catalogName + "/" + p.upstream
	}
	return catalogName
}

// SupportsBatch is true whenever a service URL is configured.
func (p *Catalog) SupportsBatch() bool {
	return p.settings.BaseURL != ""
}

// catalogBook is the metadata payload returned by the service.
type catalogBook struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	ISBN10        string   `json:"isbn10"`
	ISBN13        string   `json:"isbn13"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Description   string   `json:"description"`
	CoverURL      string   `json:"coverUrl"`
	Categories    []string `json:"categories"`
	Language      string   `json:"language"`
}

type catalogSingleResponse struct {
	Found  bool         `json:"found"`
	Data   *catalogBook `json:"data"`
	Source string       `json:"source"`
	Error  string       `json:"error"`
}

type catalogBatchRequest struct {
	ISBNs    []string            `json:"isbns"`
	Provider string              `json:"provider,omitempty"`
	Options  catalogBatchOptions `json:"options"`
}

type catalogBatchOptions struct {
	IncludeFullMetadata bool `json:"includeFullMetadata"`
	IncludePricing      bool `json:"includePricing"`
	Timeout             int  `json:"timeout,omitempty"`
}

type catalogBatchItem struct {
	ISBN   string       `json:"isbn"`
	Found  bool         `json:"found"`
	Data   *catalogBook `json:"data"`
	Error  string       `json:"error"`
	Source string       `json:"source"`
}

type catalogBatchResponse struct {
	Results   []catalogBatchItem `json:"results"`
	Total     int                `json:"total"`
	Found     int                `json:"found"`
	Cached    int                `json:"cached"`
	Fresh     int                `json:"fresh"`
	Provider  string             `json:"provider"`
	RequestID string             `json:"requestId"`
	Error     string             `json:"error"`
	Partial   bool               `json:"partial"`
}

// LookupOne calls GET /isbn-lookup?isbn=…&provider=….
func (p *Catalog) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	if p.settings.BaseURL == "" {
		return nil, fmt.Errorf("catalog service URL not configured")
	}

	q := url.Values{}
	q.Set("isbn", isbn)
	if p.upstream != "" {
		q.Set("provider", p.upstream)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.settings.BaseURL+"/isbn-lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	p.decorate(req)

	var result catalogSingleResponse
	if err := p.doJSON(ctx, req, isbn, &result); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !result.Found || result.Data == nil {
		return nil, nil
	}

	m := p.toMetadata(isbn, *result.Data, result.Source)
	return &m, nil
}

// LookupBatch calls POST /isbn-lookup/batch.
func (p *Catalog) LookupBatch(ctx context.Context, isbns []string, opts book.BatchOptions) (*book.BatchResponse, error) {
	if p.settings.BaseURL == "" {
		return nil, fmt.Errorf("catalog service URL not configured")
	}

	upstream := opts.Provider
	if upstream == "" {
		upstream = p.upstream
	}
	body := catalogBatchRequest{
		ISBNs:    isbns,
		Provider: upstream,
		Options: catalogBatchOptions{
			IncludeFullMetadata: opts.IncludeFullMetadata,
			IncludePricing:      opts.IncludePricing,
			Timeout:             int(opts.Timeout / time.Second),
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding batch request: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.settings.BaseURL+"/isbn-lookup/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := p.decorate(req)

	var result catalogBatchResponse
	if err := p.doJSON(ctx, req, "batch", &result); err != nil {
		return nil, err
	}

	resp := &book.BatchResponse{
		Results:   make([]book.BatchItem, 0, len(result.Results)),
		Total:     result.Total,
		Found:     result.Found,
		Cached:    result.Cached,
		Fresh:     result.Fresh,
		Provider:  result.Provider,
		RequestID: firstNonEmpty(result.RequestID, requestID),
		Error:     result.Error,
		Partial:   result.Partial,
	}
	for _, item := range result.Results {
		bi := book.BatchItem{
			Identifier: item.ISBN,
			Found:      item.Found,
			Error:      item.Error,
			Source:     item.Source,
		}
		if item.Found && item.Data != nil {
			m := p.toMetadata(item.ISBN, *item.Data, item.Source)
			bi.Data = &m
		}
		resp.Results = append(resp.Results, bi)
	}
	return resp, nil
}

// decorate sets auth and a request ID; the ID is returned for correlation.
func (p *Catalog) decorate(req *http.Request) string {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if p.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
	}
	return requestID
}

func (p *Catalog) toMetadata(isbn string, b catalogBook, source string) book.Metadata {
	m := book.Metadata{
		CatalogID:   b.ID,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		Authors:     b.Authors,
		ISBN10:      b.ISBN10,
		ISBN13:      b.ISBN13,
		Publisher:   b.Publisher,
		PublishDate: b.PublishedDate,
		PageCount:   b.PageCount,
		Description: b.Description,
		CoverURL:    b.CoverURL,
		Categories:  b.Categories,
		Language:    b.Language,
		Source:      book.Source{Provider: firstNonEmpty(source, p.Name()), FetchedAt: time.Now().UTC()},
	}
	if m.ISBN10 == "" && m.ISBN13 == "" {
		m.ISBN10, m.ISBN13 = splitISBNs(isbn)
	}
	return m
}
