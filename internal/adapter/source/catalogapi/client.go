// Package catalogapi is the HTTP client for the remote album catalog.
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mmcdole/crate/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Crate/1.0"

	// maxIDsPerRequest is the most ids the albums endpoint accepts at once
	maxIDsPerRequest = 20

	// maxParallelChunks bounds concurrent id-chunk requests
	maxParallelChunks = 4
)

// Client implements domain.RemoteSource over the catalog HTTP API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ domain.RemoteSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a catalog API client. token may be empty for open mocks.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs a GET and returns the body of a 200 response
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("catalog request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("catalog request failed", "error", err, "url", reqURL)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetworkUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	default:
		c.logger.Warn("catalog request error", "status", resp.StatusCode, "url", reqURL, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrNetworkUnavailable, resp.StatusCode)
	}
}

func (c *Client) decode(body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return fmt.Errorf("%w: failed to parse response: %v", domain.ErrNetworkUnavailable, err)
	}
	return nil
}

// FetchByIDs returns albums for ids, in the order the API lists them per chunk.
// A single id uses the albums/{id} endpoint so a missing album yields ErrNotFound.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) (domain.CatalogPage, error) {
	if len(ids) == 0 {
		return domain.CatalogPage{}, nil
	}
	if len(ids) == 1 {
		item, err := c.fetchAlbum(ctx, ids[0])
		if err != nil {
			return domain.CatalogPage{}, err
		}
		return domain.CatalogPage{Items: []domain.CatalogItem{item}, Limit: 1, Total: 1}, nil
	}

	chunks := chunk(ids, maxIDsPerRequest)
	results := make([][]domain.CatalogItem, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)
	for i, part := range chunks {
		g.Go(func() error {
			items, err := c.fetchChunk(ctx, part)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CatalogPage{}, err
	}

	var all []domain.CatalogItem
	for _, items := range results {
		all = append(all, items...)
	}
	return domain.CatalogPage{Items: all, Limit: len(ids), Total: len(all)}, nil
}

func (c *Client) fetchChunk(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	body, err := c.doRequest(ctx, "/albums", url.Values{"ids": {strings.Join(ids, ",")}})
	if err != nil {
		return nil, err
	}
	var resp AlbumsResponse
	if err := c.decode(body, &resp); err != nil {
		return nil, err
	}
	return MapAlbums(resp.Albums), nil
}

func (c *Client) fetchAlbum(ctx context.Context, id string) (domain.CatalogItem, error) {
	body, err := c.doRequest(ctx, "/albums/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	var dto AlbumDTO
	if err := c.decode(body, &dto); err != nil {
		return domain.CatalogItem{}, err
	}
	if dto.ID == "" {
		return domain.CatalogItem{}, fmt.Errorf("album %s: %w", id, domain.ErrNotFound)
	}
	return MapAlbum(dto), nil
}

// FetchNewReleases returns one page of new releases.
func (c *Client) FetchNewReleases(ctx context.Context, limit, offset int) (domain.CatalogPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	body, err := c.doRequest(ctx, "/browse/new-releases", query)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	var resp NewReleasesResponse
	if err := c.decode(body, &resp); err != nil {
		return domain.CatalogPage{}, err
	}

	page := domain.CatalogPage{
		Items:  MapAlbums(resp.Albums.Items),
		Offset: resp.Albums.Offset,
		Limit:  resp.Albums.Limit,
		Total:  resp.Albums.Total,
	}
	if page.Total == 0 {
		page.Total = offset + len(page.Items)
	}
	return page, nil
}

// Search queries the catalog. kind defaults to "album".
func (c *Client) Search(ctx context.Context, q, kind string, limit int) (domain.CatalogPage, error) {
	if kind == "" {
		kind = "album"
	}
	query := url.Values{}
	query.Set("q", q)
	query.Set("type", kind)
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, "/search", query)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	var resp AlbumsResponse
	if err := c.decode(body, &resp); err != nil {
		return domain.CatalogPage{}, err
	}
	items := MapAlbums(resp.Albums)
	return domain.CatalogPage{Items: items, Limit: limit, Total: len(items)}, nil
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
