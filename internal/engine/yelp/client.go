// Package yelp pages through the business search API and tallies results
// across keyword variants.
package yelp

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rendis/yelptap/internal/engine/transport"
)

const (
	// DefaultEndpoint is the business search endpoint.
	DefaultEndpoint = "https://api.yelp.com/v3/businesses/search"

	// PageSize is the largest page the API serves.
	PageSize = 50
	// MaxResults is how deep the API lets offset+limit go.
	MaxResults = 1000

	maxRetries   = 3
	baseBackoff  = 2 * time.Second
	maxBackoff   = 30 * time.Second
	jitterFactor = 0.5
)

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	Endpoint string
	// Token is the API key sent as a bearer credential.
	Token    string
	ProxyURL string
	Timeout  time.Duration
	// HTTPClient replaces the default client, mostly for tests.
	HTTPClient *http.Client
	// Backoff is the base delay after a 429; doubles per retry.
	Backoff time.Duration
	Logger  *log.Logger
	Stats   *Stats
}

// Client talks to the search API.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	backoff  time.Duration
	logger   *log.Logger
	stats    *Stats
}

func NewClient(opts ClientOptions) (*Client, error) {
	c := &Client{
		http:     opts.HTTPClient,
		endpoint: opts.Endpoint,
		token:    opts.Token,
		backoff:  opts.Backoff,
		logger:   opts.Logger,
		stats:    opts.Stats,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.backoff <= 0 {
		c.backoff = baseBackoff
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if c.http == nil {
		tr, err := transport.API(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		c.http = &http.Client{Transport: tr, Timeout: timeout}
	}
	return c, nil
}

// Stats returns the counters the client reports into, possibly nil.
func (c *Client) Stats() *Stats {
	return c.stats
}

// QueryPart strips an API query down to its parameters: anything up to and
// including '?' goes, as do leading '&'.
func QueryPart(apiQuery string) string {
	if i := strings.IndexByte(apiQuery, '?'); i >= 0 {
		apiQuery = apiQuery[i+1:]
	}
	return strings.TrimLeft(apiQuery, "&")
}

func (c *Client) pageURL(query string, offset int) string {
	u := fmt.Sprintf("%s?limit=%d&offset=%d", c.endpoint, PageSize, offset)
	if query != "" {
		u += "&" + query
	}
	return u
}

// SearchPage fetches one page, retrying with exponential backoff while the
// API answers 429.
func (c *Client) SearchPage(ctx context.Context, query string, offset int) (*Page, error) {
	reqURL := c.pageURL(QueryPart(query), offset)

	for attempt := 0; attempt < maxRetries; attempt++ {
		status, body, err := c.doRequest(ctx, reqURL)
		if err != nil {
			return nil, &TransportError{Err: err}
		}

		if status == http.StatusTooManyRequests && attempt < maxRetries-1 {
			c.stats.addRateLimit()
			wait := c.backoffFor(attempt)
			c.logger.Printf("RATE_LIMIT offset=%d attempt=%d wait=%s", offset, attempt+1, wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return decodePage(status, body)
	}
	// unreachable: the last attempt always returns
	return nil, &TransportError{StatusCode: http.StatusTooManyRequests}
}

func (c *Client) backoffFor(attempt int) time.Duration {
	backoff := c.backoff * time.Duration(1<<uint(attempt))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(float64(backoff) * jitterFactor * rand.Float64())
	return backoff + jitter
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading body: %w", err)
	}
	return resp.StatusCode, body, nil
}
