// Package catalog is the client for the OpenDataSoft vehicle catalog API:
// paged record fetches, raw record field access, and the known-manufacturer
// partition table.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/drivebase/catalog-cli/internal/resilience"
)

// DefaultBaseURL is the public all-vehicles-model records endpoint.
const DefaultBaseURL = "https://public.opendatasoft.com/api/explore/v2.1/catalog/datasets/all-vehicles-model/records"

// DefaultPageSize is the fixed page size; offsets advance by this amount.
const DefaultPageSize = 100

// Options configures the catalog client.
type Options struct {
	BaseURL   string
	PageSize  int
	UserAgent string
	Timeout   time.Duration
	// PageDelay is the minimum spacing between page requests, enforced by a
	// rate limiter to respect upstream limits.
	PageDelay time.Duration
}

// Client fetches catalog pages. All requests are serialized through a single
// rate limiter.
type Client struct {
	baseURL   string
	pageSize  int
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// Page is one page of catalog results. Empty Results signals the end of a
// partition regardless of TotalCount.
type Page struct {
	TotalCount int         `json:"total_count"`
	Results    []RawRecord `json:"results"`
}

// NewClient creates a catalog client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = 200 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "catalog-cli/1.0"
	}
	return &Client{
		baseURL:   opts.BaseURL,
		pageSize:  opts.PageSize,
		userAgent: opts.UserAgent,
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Every(opts.PageDelay), 1),
	}
}

// PageSize returns the fixed page size used for offset advancement.
func (c *Client) PageSize() int { return c.pageSize }

// Page fetches one page of records for a manufacturer partition. Timeouts,
// connection errors, and 5xx responses come back as transient errors so the
// caller can retry the same offset.
func (c *Client) Page(ctx context.Context, makeName string, offset int) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "catalog: rate limiter wait")
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("refine", fmt.Sprintf("make:%q", makeName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalog: fetch page")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "catalog: fetch page"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("catalog: http %d for make %q offset %d", resp.StatusCode, makeName, offset),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: unexpected status %d for make %q offset %d", resp.StatusCode, makeName, offset)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, eris.Wrap(err, "catalog: decode page")
	}
	return &page, nil
}
