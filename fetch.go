package htmlinclude

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxBodySize caps how much of a response body HTTPFetcher reads.
const DefaultMaxBodySize = 10 << 20

// HTTPFetcher resolves src URIs with plain HTTP GETs.
//
// Requests carry no custom headers and no credentials. Relative URIs are
// resolved against the base URL, if one is set.
type HTTPFetcher struct {
	client  *http.Client
	base    *url.URL
	maxBody int64
	logger  *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithClient sets a custom HTTP client. The default client imposes no
// timeout.
func WithClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithBaseURL sets the URL relative src values resolve against.
func WithBaseURL(u *url.URL) FetcherOption {
	return func(f *HTTPFetcher) { f.base = u }
}

// WithMaxBodySize caps the number of body bytes read.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) { f.maxBody = n }
}

// WithFetchLogger sets the logger for request-level debug records.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) { f.logger = l }
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{},
		maxBody: DefaultMaxBodySize,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Resolve returns the absolute URL for uri.
func (f *HTTPFetcher) Resolve(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if f.base != nil {
		u = f.base.ResolveReference(u)
	}
	return u.String(), nil
}

// Fetch GETs uri.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (Response, error) {
	target, err := f.Resolve(uri)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", uri, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("htmlinclude: fetched", "url", target, "status", resp.StatusCode)

	return &httpResponse{resp: resp, maxBody: f.maxBody}, nil
}

type httpResponse struct {
	resp    *http.Response
	maxBody int64
}

func (r *httpResponse) OK() bool {
	return r.resp.StatusCode >= 200 && r.resp.StatusCode < 300
}

func (r *httpResponse) Status() int {
	return r.resp.StatusCode
}

// StatusText returns the reason phrase sent by the server, e.g. "Not Found".
func (r *httpResponse) StatusText() string {
	text := strings.TrimPrefix(r.resp.Status, strconv.Itoa(r.resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		return http.StatusText(r.resp.StatusCode)
	}
	return text
}

// Text reads and closes the body. A body longer than the size cap is an
// error, never a truncated result.
func (r *httpResponse) Text(ctx context.Context) (string, error) {
	defer r.resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.resp.Body, r.maxBody+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > r.maxBody {
		return "", fmt.Errorf("response body exceeds %d bytes", r.maxBody)
	}
	return string(body), nil
}

// Close releases a body that will not be read.
func (r *httpResponse) Close() error {
	return r.resp.Body.Close()
}
