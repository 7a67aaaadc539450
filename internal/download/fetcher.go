// SPDX-License-Identifier: MPL-2.0

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent by HTTPFetcher unless overridden.
const DefaultUserAgent = "kiln"

var (
	// ErrNotFound indicates the source does not have the requested object.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates the source refused access (401/403).
	ErrForbidden = errors.New("access forbidden")
	// ErrServerError indicates a retryable server-side failure.
	ErrServerError = errors.New("server error")
	// ErrUnexpectedStatus indicates a status code with no defined handling.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrUnsupportedURL indicates a URL no fetcher can serve.
	ErrUnsupportedURL = errors.New("unsupported url")
)

type (
	// Fetcher opens a remote object for reading. The returned reader must be
	// closed by the caller. Reads are bound to ctx.
	Fetcher interface {
		Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
	}

	// FetcherFunc adapts a function to Fetcher.
	FetcherFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// StatusError reports a non-success HTTP response.
	StatusError struct {
		URL  string
		Code int
		Err  error
	}

	// HTTPFetcher fetches http and https URLs.
	HTTPFetcher struct {
		client    *http.Client
		userAgent string
	}

	// HTTPOption configures an HTTPFetcher during construction.
	HTTPOption func(*HTTPFetcher)
)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// Error formats the status failure.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Unwrap returns the classification sentinel.
func (e *StatusError) Unwrap() error { return e.Err }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// NewHTTPFetcher creates an HTTPFetcher. Without options it uses a client
// with pooled keep-alive connections and no overall timeout; per-attempt
// timeouts come from the Manager's context.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request and returns the response body on 2xx.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		_ = resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode, Err: err}
	}
	return resp.Body, nil
}

// checkStatusCode maps a status code to a classification sentinel.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrForbidden
	case code >= 500, code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return ErrServerError
	default:
		return ErrUnexpectedStatus
	}
}
