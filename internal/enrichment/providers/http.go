// Package providers implements book.Provider for the supported remote catalogs.
package providers

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/folio/internal/errors"
	"github.com/lepinkainen/folio/internal/ratelimit"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "folio/1.0 (+https://github.com/lepinkainen/folio)"
	maxErrorBody     = 512
)

// errNotFound is returned by doJSON for a 404 so callers can map it to (nil, nil).
var errNotFound = stdErrors.New("not found")

// Settings configures an HTTP-backed provider.
type Settings struct {
	// BaseURL overrides the provider's public endpoint (tests, proxies).
	BaseURL string
	// APIKey is sent in the provider-specific way when set.
	APIKey string
	// Timeout bounds each HTTP request. Zero means 10s.
	Timeout time.Duration
	// RequestsPerSecond is a provider-wide courtesy limit shared by every
	// caller of this client. Zero disables it.
	RequestsPerSecond float64
	// HTTPClient replaces the lazily built default client.
	HTTPClient *http.Client
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// httpClient holds the lazily built client and courtesy limiter shared by
// every provider implementation.
type httpClient struct {
	name     string
	settings Settings

	client      *http.Client
	rateLimiter *ratelimit.Limiter
	clientOnce  sync.Once
	limiterOnce sync.Once
}

func newHTTPClient(name, defaultBaseURL string, s Settings) *httpClient {
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	return &httpClient{name: name, settings: s}
}

func (c *httpClient) getHTTPClient() *http.Client {
	c.clientOnce.Do(func() {
		if c.settings.HTTPClient != nil {
			c.client = c.settings.HTTPClient
			return
		}
		c.client = &http.Client{Timeout: c.settings.Timeout}
	})
	return c.client
}

func (c *httpClient) getRateLimiter() *ratelimit.Limiter {
	c.limiterOnce.Do(func() {
		if c.settings.RequestsPerSecond > 0 {
			c.rateLimiter = ratelimit.New(c.name, c.settings.RequestsPerSecond)
		}
	})
	return c.rateLimiter
}

// doJSON sends req and decodes a 200 response into target.
// A 404 yields errNotFound; every other failure is a classified *errors.LookupError.
func (c *httpClient) doJSON(ctx context.Context, req *http.Request, isbn string, target any) error {
	if limiter := c.getRateLimiter(); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return errors.Classify(isbn, err)
		}
	}

	req.Header.Set("User-Agent", c.settings.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return errors.Classify(isbn, fmt.Errorf("%s request: %w", c.name, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(c.name, isbn, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if ctx.Err() != nil {
			return errors.Classify(isbn, ctx.Err())
		}
		return errors.NewLookupError(errors.ProviderError, isbn, fmt.Errorf("decoding %s response: %w", c.name, err))
	}
	return nil
}

// checkStatus maps non-200 responses onto the error taxonomy.
func checkStatus(provider, isbn string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := errors.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return &errors.LookupError{
			Kind:       errors.RateLimited,
			ISBN:       isbn,
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter,
			Err:        errors.NewRateLimitErrorWithRetry(provider+" rate limit reached", retryAfter),
		}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return errors.NewProviderError(isbn, resp.StatusCode, fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode, msg))
	}
}

// extractDescription handles the various forms description can take.
func extractDescription(desc any) string {
	if desc == nil {
		return ""
	}
	switch v := desc.(type) {
	case string:
		return v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			return val
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitISBNs sorts identifiers into ISBN-10 and ISBN-13 by length.
func splitISBNs(ids ...string) (isbn10, isbn13 string) {
	for _, id := range ids {
		switch len(id) {
		case 10:
			if isbn10 == "" {
				isbn10 = id
			}
		case 13:
			if isbn13 == "" {
				isbn13 = id
			}
		}
	}
	return isbn10, isbn13
}
