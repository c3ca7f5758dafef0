// Package includeecho provides Echo framework integration for the
// html-include handler.
//
// Mount the handler onto an Echo instance or group:
//
//	e := echo.New()
//	h := includeecho.Mount(e, includeecho.WithKey(key))
//
//	// in a template:
//	@h.Lazy(htmlinclude.Attrs{{"src", "/partials/footer.html"}})
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	h := includeecho.MountGroup(g)
package includeecho

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/htmlinclude"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key     []byte
	path    string
	base    string
	handler []htmlinclude.HandlerOption
}

// WithKey sets the key protecting include references.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path the handler is mounted at.
// Defaults to htmlinclude.DefaultPrefix.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithBase sets the prefix of the group the handler is mounted on, so the
// URLs it builds resolve from the site root.
func WithBase(base string) Option {
	return func(o *options) {
		o.base = strings.TrimSuffix(base, "/")
	}
}

// WithHandlerOptions passes opts to htmlinclude.NewHandler.
func WithHandlerOptions(opts ...htmlinclude.HandlerOption) Option {
	return func(o *options) {
		o.handler = append(o.handler, opts...)
	}
}

// Mount creates an include handler and mounts it on an Echo instance.
func Mount(e *echo.Echo, opts ...Option) *htmlinclude.Handler {
	h, path := newHandler(opts)
	e.GET(path+"*", echo.WrapHandler(h))
	return h
}

// MountGroup creates an include handler and mounts it on an Echo group.
// Include requests then pass through the group's middleware.
// Pass the group's prefix with WithBase.
func MountGroup(g *echo.Group, opts ...Option) *htmlinclude.Handler {
	h, path := newHandler(opts)
	g.GET(path+"*", echo.WrapHandler(h))
	return h
}

func newHandler(opts []Option) (*htmlinclude.Handler, string) {
	o := &options{path: htmlinclude.DefaultPrefix}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("includeecho: failed to generate random key: %v", err))
		}
	}

	hopts := append([]htmlinclude.HandlerOption{htmlinclude.WithPrefix(o.base + o.path)}, o.handler...)
	h, err := htmlinclude.NewHandler(key, hopts...)
	if err != nil {
		panic(fmt.Sprintf("includeecho: %v", err))
	}
	return h, o.path
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return includeecho.Render(c, page(h))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
