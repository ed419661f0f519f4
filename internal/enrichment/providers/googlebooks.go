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
	googleBooksName    = "Google Books"
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"
)

// GoogleBooks implements book.Provider for the Google Books API.
// The volumes endpoint takes one query per request, so there is no batch path.
type GoogleBooks struct {
	*httpClient
}

var _ book.Provider = (*GoogleBooks)(nil)

// NewGoogleBooks creates a new Google Books provider.
func NewGoogleBooks(s Settings) *GoogleBooks {
	return &GoogleBooks{httpClient: newHTTPClient(googleBooksName, googleBooksBaseURL, s)}
}

// Name returns the human-readable name of this provider.
func (p *GoogleBooks) Name() string {
	return googleBooksName
}

// googleBooksResponse matches the Google Books API response structure.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			PageCount           int      `json:"pageCount"`
			Categories          []string `json:"categories"`
			Language            string   `json:"language"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// LookupOne fetches book data from Google Books by ISBN.
func (p *GoogleBooks) LookupOne(ctx context.Context, isbn string) (*book.Metadata, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if p.settings.APIKey != "" {
		q.Set("key", p.settings.APIKey)
	}

	u := fmt.Sprintf("%s/volumes?%s", p.settings.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var result googleBooksResponse
	if err := p.doJSON(ctx, req, isbn, &result); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return nil, nil
	}

	// Use first item (best match)
	item := result.Items[0]
	vol := item.VolumeInfo

	m := book.Metadata{
		CatalogID:   item.ID,
		Title:       vol.Title,
		Subtitle:    vol.Subtitle,
		Authors:     vol.Authors,
		Publisher:   vol.Publisher,
		PublishDate: vol.PublishedDate,
		Description: vol.Description,
		PageCount:   vol.PageCount,
		Categories:  vol.Categories,
		Language:    vol.Language,
		Source:      book.Source{Provider: googleBooksName, FetchedAt: time.Now().UTC()},
	}

	// Prefer larger thumbnail
	coverURL := firstNonEmpty(vol.ImageLinks.Thumbnail, vol.ImageLinks.SmallThumbnail)
	if coverURL != "" {
		// Remove zoom parameter for higher quality
		m.CoverURL = strings.Replace(coverURL, "zoom=1", "zoom=0", 1)
	}

	for _, id := range vol.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_10":
			m.ISBN10 = id.Identifier
		case "ISBN_13":
			m.ISBN13 = id.Identifier
		}
	}
	if m.ISBN10 == "" && m.ISBN13 == "" {
		m.ISBN10, m.ISBN13 = splitISBNs(isbn)
	}

	return &m, nil
}
