// Package upstream fetches raw quote batches from remote sources.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

// DefaultPath is the quotes endpoint below the configured base URL.
const DefaultPath = "/functions/v1/quotes"

const defaultUserAgent = "quotefeed/1.0 (quote reader)"

// Source yields one batch of quotes per call. Each call is expected to
// return a fresh slice; the source's own randomization is trusted.
type Source interface {
	Fetch(ctx context.Context) ([]quotes.RawQuote, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]quotes.RawQuote, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]quotes.RawQuote, error) {
	return f(ctx)
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quotes API error: %d %s", e.Code, http.StatusText(e.Code))
}

// Client fetches quotes from the JSON quotes endpoint.
type Client struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewClient creates a client for baseURL+path. A zero timeout means the
// request may wait indefinitely.
func NewClient(baseURL, path string, timeout time.Duration) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{
		url:       strings.TrimRight(baseURL, "/") + path,
		userAgent: defaultUserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// WithUserAgent overrides the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// URL returns the endpoint the client calls.
func (c *Client) URL() string {
	return c.url
}

// Fetch performs one GET against the endpoint. No pagination parameters
// are sent.
func (c *Client) Fetch(ctx context.Context) ([]quotes.RawQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var batch []quotes.RawQuote
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding quotes: %w", err)
	}

	log.Printf("Fetched %d quotes from %s", len(batch), c.url)
	return batch, nil
}
