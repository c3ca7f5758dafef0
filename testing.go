package htmlinclude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// TestResult holds the settled state of an include for testing.
//
// Provides convenience methods for asserting on region content, state,
// reported errors and, for handler requests, the HTTP response.
type TestResult struct {
	HTML   string
	Text   string
	Loaded bool
	Failed bool
	Errors []error

	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string
}

// TestInclude runs one include element for attrs until it settles.
//
// This drives the same path as a hosting document: attributes are set in
// order, the element is connected, and the loop runs until no fetch is
// outstanding.
//
//	f := htmlinclude.NewFakeFetcher().Respond("ok.html", 200, "<p>hi</p>")
//	result, err := htmlinclude.TestInclude(f, htmlinclude.Attrs{{"src", "ok.html"}})
//	if !result.Loaded {
//	    t.Fatal("expected include to load")
//	}
func TestInclude(fetcher Fetcher, attrs Attrs, opts ...Option) (*TestResult, error) {
	return TestIncludeWithContext(context.Background(), fetcher, attrs, opts...)
}

// TestIncludeWithContext is TestInclude with a caller-supplied context,
// which bounds how long the include may take to settle.
func TestIncludeWithContext(ctx context.Context, fetcher Fetcher, attrs Attrs, opts ...Option) (*TestResult, error) {
	x := NewExpander(WithExpanderFetcher(fetcher), WithElementOptions(opts...))
	elem, errs, err := x.ExpandNode(ctx, attrs)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       elem.Region().HTML(),
		Text:       elem.Region().Text(),
		Loaded:     elem.Loaded(),
		Failed:     elem.Failed(),
		Errors:     errs,
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestServe requests the include described by attrs from h.
//
// With htmx set, the request carries HX-Request: true, as HTMX's own
// requests do.
func TestServe(h *Handler, attrs Attrs, htmx bool) (*TestResult, error) {
	u, err := h.URL(attrs)
	if err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodGet, u, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
	if trigger := rec.Header().Get("HX-Trigger"); trigger != "" {
		result.TriggeredEvents = parseTriggerHeader(trigger)
	}
	return result, nil
}

// HTMLContains checks if the region HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HasError checks if any reported error matches target.
func (r *TestResult) HasError(target error) bool {
	for _, err := range r.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// HasEvent checks if an event was triggered.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// parseTriggerHeader parses the HX-Trigger header value into event names.
// The header can be a simple event name or JSON.
func parseTriggerHeader(trigger string) []string {
	trigger = strings.TrimSpace(trigger)
	if !strings.HasPrefix(trigger, "{") {
		return []string{trigger}
	}
	var events map[string]any
	if err := json.Unmarshal([]byte(trigger), &events); err != nil {
		return []string{trigger}
	}
	out := make([]string, 0, len(events))
	for name := range events {
		out = append(out, name)
	}
	return out
}

// FakeFetcher is an in-memory Fetcher for tests.
//
// URIs without a configured response answer 404 Not Found. Responses can
// be held back with Hold to control the order in which concurrent loads
// complete.
type FakeFetcher struct {
	mu     sync.Mutex
	routes map[string]*fakeRoute
	calls  []string
}

type fakeRoute struct {
	status  int
	body    string
	err     error
	bodyErr error
	gate    chan struct{}
}

// NewFakeFetcher creates an empty FakeFetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{routes: make(map[string]*fakeRoute)}
}

// Respond answers uri with status and body.
func (f *FakeFetcher) Respond(uri string, status int, body string) *FakeFetcher {
	f.update(uri, func(r *fakeRoute) { r.status, r.body = status, body })
	return f
}

// Fail makes fetching uri fail at the transport level with err.
func (f *FakeFetcher) Fail(uri string, err error) *FakeFetcher {
	f.update(uri, func(r *fakeRoute) { r.err = err })
	return f
}

// FailBody answers uri with status but fails reading the body with err.
func (f *FakeFetcher) FailBody(uri string, status int, err error) *FakeFetcher {
	f.update(uri, func(r *fakeRoute) { r.status, r.bodyErr = status, err })
	return f
}

// Hold blocks fetches of uri until release is called. release may be
// called more than once.
func (f *FakeFetcher) Hold(uri string) (release func()) {
	gate := make(chan struct{})
	f.update(uri, func(r *fakeRoute) { r.gate = gate })
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns the URIs fetched so far, in order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Fetch implements Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, uri string) (Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uri)
	r, ok := f.routes[uri]
	var route fakeRoute
	if ok {
		route = *r
	} else {
		route = fakeRoute{status: http.StatusNotFound}
	}
	f.mu.Unlock()

	if route.gate != nil {
		select {
		case <-route.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if route.err != nil {
		return nil, route.err
	}
	if route.status == 0 {
		route.status = http.StatusOK
	}
	return &fakeResponse{route: route}, nil
}

func (f *FakeFetcher) update(uri string, fn func(*fakeRoute)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[uri]
	if !ok {
		r = &fakeRoute{}
		f.routes[uri] = r
	}
	fn(r)
}

type fakeResponse struct {
	route fakeRoute
}

func (r *fakeResponse) OK() bool {
	return r.route.status >= 200 && r.route.status < 300
}

func (r *fakeResponse) Status() int {
	return r.route.status
}

func (r *fakeResponse) StatusText() string {
	return http.StatusText(r.route.status)
}

func (r *fakeResponse) Text(ctx context.Context) (string, error) {
	if r.route.bodyErr != nil {
		return "", r.route.bodyErr
	}
	return r.route.body, nil
}
