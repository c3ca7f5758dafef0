package htmlinclude

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/partials/footer.html", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "bad method", http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("<footer>bye</footer>"))
	})
	mux.HandleFunc("/headers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" || r.Header.Get("Authorization") != "" {
			http.Error(w, "credentials sent", http.StatusBadRequest)
			return
		}
		w.Write([]byte("clean"))
	})
	mux.HandleFunc("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher()

	resp, err := f.Fetch(context.Background(), srv.URL+"/partials/footer.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !resp.OK() || resp.Status() != http.StatusOK || resp.StatusText() != "OK" {
		t.Errorf("response: ok=%v status=%d text=%q", resp.OK(), resp.Status(), resp.StatusText())
	}
	body, err := resp.Text(context.Background())
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if body != "<footer>bye</footer>" {
		t.Errorf("Text() = %q", body)
	}
}

func TestHTTPFetcher_StatusText(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher()

	tests := []struct {
		path   string
		status int
		text   string
	}{
		{"/nope", http.StatusNotFound, "Not Found"},
		{"/teapot", http.StatusTeapot, "I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := f.Fetch(context.Background(), srv.URL+tt.path)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			defer resp.(*httpResponse).Close()

			if resp.OK() {
				t.Error("OK() = true")
			}
			if resp.Status() != tt.status || resp.StatusText() != tt.text {
				t.Errorf("status = %d %q, want %d %q", resp.Status(), resp.StatusText(), tt.status, tt.text)
			}
		})
	}
}

func TestHTTPFetcher_BaseURL(t *testing.T) {
	srv := newTestServer(t)
	base, _ := url.Parse(srv.URL + "/pages/index.html")
	f := NewHTTPFetcher(WithBaseURL(base))

	resolved, err := f.Resolve("../partials/footer.html")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved != srv.URL+"/partials/footer.html" {
		t.Errorf("Resolve() = %q", resolved)
	}

	resp, err := f.Fetch(context.Background(), "/partials/footer.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body, _ := resp.Text(context.Background()); body != "<footer>bye</footer>" {
		t.Errorf("Text() = %q", body)
	}
}

func TestHTTPFetcher_BareRequest(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(WithClient(srv.Client()))

	resp, err := f.Fetch(context.Background(), srv.URL+"/headers")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body, _ := resp.Text(context.Background()); body != "clean" {
		t.Errorf("Text() = %q, status %d", body, resp.Status())
	}
}

func TestHTTPFetcher_MaxBodySize(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(WithMaxBodySize(10))

	resp, err := f.Fetch(context.Background(), srv.URL+"/big")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	body, err := resp.Text(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exceeds 10 bytes") {
		t.Errorf("Text() = %q, %v, want a size error", body, err)
	}
	if body != "" {
		t.Errorf("Text() returned truncated content %q", body)
	}

	exact := NewHTTPFetcher(WithMaxBodySize(100))
	resp, err = exact.Fetch(context.Background(), srv.URL+"/big")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body, err := resp.Text(context.Background()); err != nil || len(body) != 100 {
		t.Errorf("body at the cap: len=%d err=%v", len(body), err)
	}
}

func TestHTTPFetcher_OversizedBodyFailsElement(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(WithMaxBodySize(10))

	result, err := TestInclude(f, Attrs{{AttrSrc, srv.URL + "/partials/footer.html"}, {AttrTitle, "footer"}})
	if err != nil {
		t.Fatalf("TestInclude() error = %v", err)
	}
	if result.Loaded || !result.Failed {
		t.Errorf("loaded=%v failed=%v, want failed", result.Loaded, result.Failed)
	}
	if result.HTML != "⚠️ Loading “footer” failed!" {
		t.Errorf("HTML = %q", result.HTML)
	}
	if !result.HasError(ErrFetchFailed) {
		t.Errorf("errors = %v, want a fetch error", result.Errors)
	}
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewHTTPFetcher()
	if _, err := f.Fetch(context.Background(), addr+"/x"); err == nil {
		t.Error("Fetch() against a closed server succeeded")
	}
}

func TestHTTPFetcher_WithElement(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher()

	result, err := TestInclude(f, Attrs{{AttrSrc, srv.URL + "/partials/footer.html"}})
	if err != nil {
		t.Fatalf("TestInclude() error = %v", err)
	}
	if !result.Loaded || result.HTML != "<footer>bye</footer>" {
		t.Errorf("result = %+v", result)
	}

	result, err = TestInclude(f, Attrs{{AttrSrc, srv.URL + "/teapot"}, {AttrTitle, "pot"}})
	if err != nil {
		t.Fatalf("TestInclude() error = %v", err)
	}
	if !result.Failed || result.Text != "⚠️ Loading “pot” failed!" {
		t.Errorf("result = %+v", result)
	}
	if !result.HasError(ErrFetchFailed) {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestHTTPFetcher_Logger(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := NewHTTPFetcher(WithFetchLogger(logger))

	resp, err := f.Fetch(context.Background(), srv.URL+"/teapot")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	discard(resp)

	if !strings.Contains(buf.String(), "status=418") {
		t.Errorf("log = %q", buf.String())
	}
}
