// Package fetch implements the Fetcher interface.
// It performs HTTP GET and HEAD requests with defaults suited to crawling
// small municipal sites, and wraps them with per-origin politeness and
// robots.txt checks.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "muniwatch/1.0 (+https://github.com/gaurav-prasanna/muniwatch)"
	defaultMaxBody   = 50 << 20
)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("fetch: body too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d for %s", e.StatusCode, e.URL)
}

// IsStatusError reports whether err carries an HTTP status, as opposed to a
// transport failure (DNS, TLS, refused connection, timeout).
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Options tunes an HTTPFetcher. Zero values select defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// HTTPFetcher fetches resources via HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
	}
}

// UserAgent returns the User-Agent header sent with every request.
func (f *HTTPFetcher) UserAgent() string { return f.userAgent }

// Client exposes the underlying client so helpers such as the robots
// checker share its timeout.
func (f *HTTPFetcher) Client() *http.Client { return f.client }

// Fetch retrieves the body of the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	return f.do(ctx, http.MethodGet, url)
}

// Head retrieves only the response headers of the given URL.
func (f *HTTPFetcher) Head(ctx context.Context, url string) (*core.FetchResult, error) {
	return f.do(ctx, http.MethodHead, url)
}

func (f *HTTPFetcher) do(ctx context.Context, method, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,application/rss+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: %s %s", method, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	result := &core.FetchResult{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
	}
	if method == http.MethodHead {
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read body of %s", url)
	}
	if int64(len(body)) > f.maxBody {
		return nil, eris.Wrapf(ErrTooLarge, "fetch: %s exceeds %d bytes", url, f.maxBody)
	}
	result.Body = body
	return result, nil
}
