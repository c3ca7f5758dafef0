package htmlinclude

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// DefaultPrefix is where a Handler expects to be mounted.
const DefaultPrefix = "/_include/"

// FailedEvent is the HX-Trigger event sent when an include fails.
const FailedEvent = "html-include:failed"

// Handler resolves includes on the server for HTMX pages.
//
// A page renders Lazy(attrs) where the include belongs. The placeholder
// carries a signed (or, with Sensitive, encrypted) reference to the
// include's attributes; once the page has loaded, HTMX requests it and
// the handler answers with the settled region of an IncludeElement run
// for those attributes. Clients cannot alter the reference, so the
// handler only ever fetches the src values the page was rendered with.
//
//	h, _ := htmlinclude.NewHandler(key)
//	mux.Handle(htmlinclude.DefaultPrefix, h)
//
//	// in a template:
//	@h.Lazy(htmlinclude.Attrs{{"src", "/partials/footer.html"}, {"title", "footer"}})
type Handler struct {
	prefix    string
	sensitive bool
	encoder   *Encoder
	expander  *Expander
	logger    *slog.Logger

	// OnError writes the response for requests that cannot be served.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPrefix sets the mount path used to build URLs.
func WithPrefix(prefix string) HandlerOption {
	return func(h *Handler) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		h.prefix = prefix
	}
}

// Sensitive encrypts references instead of signing them.
func Sensitive() HandlerOption {
	return func(h *Handler) { h.sensitive = true }
}

// WithExpander sets the expander that runs includes. Its fetcher decides
// how src values resolve.
func WithExpander(x *Expander) HandlerOption {
	return func(h *Handler) { h.expander = x }
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a handler whose references are protected by key.
func NewHandler(key []byte, opts ...HandlerOption) (*Handler, error) {
	enc, err := NewEncoder(key)
	if err != nil {
		return nil, fmt.Errorf("htmlinclude: create encoder: %w", err)
	}

	h := &Handler{
		prefix:  DefaultPrefix,
		encoder: enc,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.expander == nil {
		h.expander = NewExpander(WithExpanderLogger(h.logger))
	}

	h.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		if IsDecodeError(err) || IsConfigurationError(err) {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}

	return h, nil
}

// Prefix returns the path the handler is mounted at.
func (h *Handler) Prefix() string {
	return h.prefix
}

// URL returns the address that serves the include described by attrs.
func (h *Handler) URL(attrs Attrs) (string, error) {
	token, err := h.encoder.Encode(attrs, h.sensitive)
	if err != nil {
		return "", err
	}
	return h.prefix + "?p=" + token, nil
}

// Lazy renders a placeholder that HTMX swaps for the include once the page
// has loaded. The placeholder shows the same loading message the element
// would.
func (h *Handler) Lazy(attrs Attrs) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		u, err := h.URL(attrs)
		if err != nil {
			return err
		}
		title, _ := attrs.Get(AttrTitle)
		_, err = io.WriteString(w, fmt.Sprintf(`<div hx-get="%s" hx-trigger="load" hx-swap="outerHTML">%s</div>`,
			html.EscapeString(u), html.EscapeString(loadingMessage(title))))
		return err
	})
}

// ServeHTTP runs the referenced include and writes its region.
//
// HTMX requests receive the bare region content, which is not isolated
// from the page's styles once swapped in. Other requests receive a
// complete <html-include> element with the region as its declarative
// shadow root. A failed include is still answered with 200 and its
// failure placeholder; the HX-Trigger header carries FailedEvent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	attrs, err := h.encoder.Decode(r.URL.Query().Get("p"), h.sensitive)
	if err != nil {
		h.OnError(w, r, wrapEncodingError(err))
		return
	}

	elem, errs, err := h.expander.ExpandNode(r.Context(), attrs)
	if err != nil {
		h.OnError(w, r, err)
		return
	}
	for _, e := range errs {
		if IsConfigurationError(e) {
			h.OnError(w, r, e)
			return
		}
	}

	if len(errs) > 0 {
		src, _ := attrs.Get(AttrSrc)
		var fe *FetchError
		data := map[string]any{"src": src}
		if errors.As(errs[0], &fe) {
			data["reason"] = fe.Reason
		}
		w.Header().Set("HX-Trigger", TriggerHeader(FailedEvent, data))
	}

	// HTMX swaps the response into the light DOM, where a declarative
	// shadow root is not attached, so this path gives up the region's
	// style isolation and sends the bare content.
	if IsHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, elem.Region().HTML())
		return
	}

	if err := Render(w, r, hostElement(attrs, elem.Region())); err != nil {
		h.logger.Error("htmlinclude: write response", "error", err)
	}
}

// hostElement renders <html-include> with its attributes and region.
func hostElement(attrs Attrs, region *Region) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString("<" + TagName)
		for _, kv := range attrs {
			sb.WriteString(" " + html.EscapeString(kv[0]) + `="` + html.EscapeString(kv[1]) + `"`)
		}
		sb.WriteString(">")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
		if err := region.Render().Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+TagName+">")
		return err
	})
}
