package htmlinclude

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    htmlinclude.Render(w, r, page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// TriggerHeader builds an HX-Trigger header value.
//
// Without data it is the bare event name; with data it is the JSON object
// form, which HTMX exposes to listeners as evt.detail.
func TriggerHeader(event string, data map[string]any) string {
	if data == nil {
		return event
	}
	b, _ := json.Marshal(map[string]any{event: data})
	return string(b)
}
