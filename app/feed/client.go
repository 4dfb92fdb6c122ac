package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://www.reddit.com"
	DefaultMaxBodySize = 16 << 20
)

type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Limiter gates every request. nil means unlimited.
	Limiter *rate.Limiter
	// MaxBodySize caps a listing response in bytes.
	MaxBodySize int64
}

// Client issues single listing requests. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	userAgent   string
	timeout     time.Duration
	limiter     *rate.Limiter
	maxBodySize int64
}

func NewClient(httpClient *http.Client, config ClientConfig) (*Client, error) {
	rawBase := config.BaseURL
	if rawBase == "" {
		rawBase = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(rawBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrParsing, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", ErrParsing, rawBase)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := config.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	maxBodySize := config.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   config.UserAgent,
		timeout:     timeout,
		limiter:     limiter,
		maxBodySize: maxBodySize,
	}, nil
}

// FetchPage requests one page of the listing selected by query, continuing
// after the given cursor. The decoded top-level envelope is returned as is.
func (c *Client) FetchPage(ctx context.Context, query Query, after string, limit int) (*Thing, error) {
	uri := c.listingURL(query, after, limit)

	data, err := c.get(ctx, uri)
	if err != nil {
		return nil, err
	}

	var thing Thing
	if err := json.Unmarshal(data, &thing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	slog.Debug("Listing page fetched", "query", query.String(), "after", after, "limit", limit, "kind", thing.Kind)
	return &thing, nil
}

// Ping checks the API is reachable with the configured user agent.
func (c *Client) Ping(ctx context.Context) error {
	uri := *c.baseURL
	uri.Path += "/api/v1/me.json"
	_, err := c.get(ctx, &uri)
	return err
}

func (c *Client) listingURL(query Query, after string, limit int) *url.URL {
	uri := *c.baseURL
	uri.Path += "/r/" + query.Subreddit + query.Sort.PathSuffix() + ".json"

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("after", after)
	params.Set("t", string(query.Window))
	uri.RawQuery = params.Encode()

	return &uri
}

func (c *Client) get(ctx context.Context, uri *url.URL) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrParsing, err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if n > c.maxBodySize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrParsing, c.maxBodySize)
	}

	return buf.Bytes(), nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
