package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultMaxRedirects = 10
	DefaultMaxAttempts  = 5
	DefaultTimeout      = 10 * time.Second
)

type CheckerConfig struct {
	UserAgent    string
	Timeout      time.Duration // per HEAD request
	MaxRedirects int
	MaxAttempts  int
	Overrides    []Override
}

type Checker struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	maxRedirects int
	maxAttempts  int
	overrides    []Override
}

// NewChecker wraps a copy of httpClient that never follows redirects on its
// own. The transport, and with it the connection pool, stays shared.
func NewChecker(httpClient *http.Client, config CheckerConfig) *Checker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := *httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = DefaultMaxRedirects
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Overrides == nil {
		config.Overrides = DefaultOverrides
	}

	return &Checker{
		client:       &client,
		userAgent:    config.UserAgent,
		timeout:      config.Timeout,
		maxRedirects: config.MaxRedirects,
		maxAttempts:  config.MaxAttempts,
		overrides:    config.Overrides,
	}
}

// Probe decides whether the link with the given id still resolves.
//
// A 404 at the end of the redirect chain is Dead and a 2xx is Live, both on
// the first sighting. Other statuses and transport failures are retried, each
// attempt starting over from rawURL. Redirect loops and malformed targets are
// Indeterminate without retrying.
func (c *Checker) Probe(ctx context.Context, id int64, rawURL string) Outcome {
	start, err := parseTarget(rawURL)
	if err != nil {
		return Outcome{Verdict: Indeterminate, Err: err}
	}

	var statusErr *UnexpectedStatusError
	var transportErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Verdict: Indeterminate, Err: err}
		}

		statusCode, finalURL, err := c.follow(ctx, start)
		if err != nil {
			if isPermanent(err) {
				return Outcome{Verdict: Indeterminate, Err: err}
			}
			slog.Debug("Probe attempt failed", "id", id, "url", rawURL, "attempt", attempt, "error", err)
			transportErr = err
			continue
		}

		switch {
		case statusCode == http.StatusNotFound:
			return Outcome{Verdict: Dead}
		case statusCode >= 200 && statusCode < 300:
			return Outcome{Verdict: Live}
		}

		slog.Debug("Probe attempt got unexpected status", "id", id, "url", finalURL, "status", statusCode, "attempt", attempt)
		statusErr = &UnexpectedStatusError{StatusCode: statusCode, URL: rawURL, FinalURL: finalURL, ID: id}
	}

	if statusErr != nil {
		return applyOverrides(c.overrides, Outcome{Verdict: Indeterminate, Err: statusErr})
	}
	return Outcome{Verdict: Indeterminate, Err: transportErr}
}

// follow issues HEAD requests along the redirect chain starting at target and
// returns the first non-redirect status together with the URL that produced it.
func (c *Checker) follow(ctx context.Context, target *url.URL) (int, string, error) {
	current := target

	for hops := 0; ; hops++ {
		resp, err := c.head(ctx, current)
		if err != nil {
			return 0, current.String(), err
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return resp.StatusCode, current.String(), nil
		}

		if hops >= c.maxRedirects {
			return 0, current.String(), fmt.Errorf("%w: more than %d hops from %s", ErrTooManyRedirects, c.maxRedirects, target)
		}

		next, err := url.Parse(location)
		if err != nil {
			return 0, current.String(), &InvalidURIError{URI: location, Err: err}
		}
		next = current.ResolveReference(next)
		if !hasValidParts(next) {
			return 0, current.String(), fmt.Errorf("%w: %s", ErrInvalidURIParts, next)
		}

		current = next
	}
}

func (c *Checker) head(ctx context.Context, target *url.URL) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return nil, &InvalidURIError{URI: target.String(), Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HEAD %s: %w", target, err)
	}
	resp.Body.Close()

	return resp, nil
}

func parseTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURIError{URI: rawURL, Err: err}
	}
	if !hasValidParts(u) {
		return nil, &InvalidURIError{URI: rawURL, Err: ErrInvalidURIParts}
	}
	return u, nil
}

func hasValidParts(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isRedirect(statusCode int) bool {
	return statusCode >= 300 && statusCode < 400
}

func isPermanent(err error) bool {
	var invalid *InvalidURIError
	return errors.Is(err, ErrTooManyRedirects) || errors.Is(err, ErrInvalidURIParts) || errors.As(err, &invalid)
}
