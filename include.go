package htmlinclude

import (
	"context"
	"io"
	"log/slog"
)

// TagName is the tag the include element is registered under.
const TagName = "html-include"

// Attribute names recognised by the include element.
const (
	AttrSrc   = "src"
	AttrTitle = "title"
	AttrDebug = "debug"
)

// IncludeElement fetches the URI named by its src attribute and shows the
// result in its isolated region, replacing a loading placeholder with
// either the fetched markup or an error message.
//
// An IncludeElement is driven by its host (attribute changes and
// connection) and by the completion of its own fetches. All of its methods
// run on the loop goroutine.
type IncludeElement struct {
	host    Host
	fetcher Fetcher
	loop    *Loop
	logger  *slog.Logger
	legacy  bool

	region *Region

	loaded     bool
	failed     bool
	generation uint64
}

// New creates an include element hosted by host.
//
// The region is allocated here, once, and seeded with "Loading…".
func New(host Host, opts ...Option) *IncludeElement {
	o := newOptions(opts)
	e := &IncludeElement{
		host:    host,
		fetcher: o.fetcher,
		loop:    o.loop,
		logger:  o.logger,
		legacy:  o.legacy,
		region:  newRegion(),
	}
	e.region.SetText(loadingMessage(""))
	return e
}

var observedAttributes = []string{AttrSrc, AttrTitle}

// ObservedAttributes returns the attributes whose changes are delivered
// to OnAttributeChanged.
func (e *IncludeElement) ObservedAttributes() []string {
	return observedAttributes
}

// OnAttributeChanged dispatches a src or title change.
func (e *IncludeElement) OnAttributeChanged(name, oldValue, newValue string) {
	e.trace("attributeChanged", "begin", "name", name, "old", oldValue, "new", newValue)

	switch name {
	case AttrSrc:
		e.srcChanged()
	case AttrTitle:
		e.titleChanged()
	}

	e.trace("attributeChanged", "end")
}

// OnConnected refreshes the placeholder and (re)starts loading. It runs
// on every connection, including reconnection after removal.
func (e *IncludeElement) OnConnected() {
	e.trace("connected", "begin")

	e.titleChanged()
	e.srcChanged()

	e.trace("connected", "end")
}

// Loaded reports whether the most recent authoritative load succeeded.
func (e *IncludeElement) Loaded() bool {
	return e.loaded
}

// Failed reports whether the most recent authoritative load failed.
func (e *IncludeElement) Failed() bool {
	return e.failed
}

// Region returns the element's render region.
func (e *IncludeElement) Region() *Region {
	return e.region
}

// Generation returns the number of loads started so far.
func (e *IncludeElement) Generation() uint64 {
	return e.generation
}

func (e *IncludeElement) titleChanged() {
	e.trace("titleChanged", "begin")

	if e.loaded {
		e.trace("titleChanged", "return", "loaded", true)
		return
	}

	title, _ := e.host.Attribute(AttrTitle)
	e.trace("titleChanged", "render", "title", title, "failed", e.failed)
	if e.failed {
		e.region.SetText(failedMessage(title))
	} else {
		e.region.SetText(loadingMessage(title))
	}

	e.trace("titleChanged", "end")
}

func (e *IncludeElement) srcChanged() {
	e.trace("srcChanged", "begin")

	if !e.host.IsConnected() {
		e.trace("srcChanged", "return", "connected", false)
		return
	}
	e.loaded = false
	e.failed = false
	e.load()

	e.trace("srcChanged", "end")
}

// load starts fetching src. It returns once the fetch is issued; the rest
// of the sequence runs as two continuations on the loop, one after the
// response arrives and one after the body has been read.
//
// Each load takes a new generation. A continuation belonging to an older
// generation is discarded, so the most recently started load decides the
// final state regardless of completion order.
func (e *IncludeElement) load() {
	e.trace("load", "begin")

	e.generation++
	gen := e.generation

	src, _ := e.host.Attribute(AttrSrc)
	if src == "" {
		e.trace("load", "error", "err", ErrMissingSrc)
		e.host.ReportError(ErrMissingSrc)
		return
	}

	Await(e.loop, func(ctx context.Context) (Response, error) {
		return e.fetcher.Fetch(ctx, src)
	}, func(resp Response, err error) {
		if e.stale(gen, "fetched", src) {
			if err == nil {
				discard(resp)
			}
			return
		}
		if err != nil {
			e.trace("load", "error", "src", src, "err", err)
			e.host.ReportError(e.fail(src, err.Error(), 0, err))
			return
		}
		if !resp.OK() || resp.Status() != 200 {
			discard(resp)
			e.trace("load", "error", "src", src, "status", resp.Status())
			e.host.ReportError(e.fail(src, resp.StatusText(), resp.Status(), nil))
			return
		}
		e.read(gen, src, resp)
	})

	e.trace("load", "end", "src", src, "generation", gen)
}

func (e *IncludeElement) read(gen uint64, src string, resp Response) {
	Await(e.loop, resp.Text, func(content string, err error) {
		if e.stale(gen, "read", src) {
			return
		}
		if err != nil {
			e.trace("load", "error", "src", src, "err", err)
			e.host.ReportError(e.fail(src, err.Error(), resp.Status(), err))
			return
		}
		e.trace("load", "content", "src", src, "content", content)

		e.failed = false
		e.region.SetHTML(content)
		e.loaded = true

		e.trace("load", "loaded", "src", src)
	})
}

// stale reports whether gen has been superseded by a newer load.
func (e *IncludeElement) stale(gen uint64, phase, src string) bool {
	if e.legacy || gen == e.generation {
		return false
	}
	e.trace("load", "stale", "phase", phase, "src", src, "generation", gen, "current", e.generation)
	return true
}

// fail moves the element into the failed state and returns the error
// describing why.
func (e *IncludeElement) fail(src, reason string, status int, cause error) error {
	e.trace("fail", "begin", "src", src, "reason", reason)

	e.failed = true
	e.loaded = false
	e.titleChanged()

	e.trace("fail", "end")
	return &FetchError{Src: src, Reason: reason, Status: status, Err: cause}
}

// trace logs a diagnostic record when the debug attribute is exactly "true".
func (e *IncludeElement) trace(op, phase string, args ...any) {
	if debug, _ := e.host.Attribute(AttrDebug); debug != "true" {
		return
	}
	e.logger.Log(context.Background(), slog.LevelDebug, "<"+TagName+">",
		append([]any{"op", op, "phase", phase}, args...)...)
}

// discard releases a response whose body will not be read.
func discard(resp Response) {
	if c, ok := resp.(io.Closer); ok {
		c.Close()
	}
}

func loadingMessage(title string) string {
	if title != "" {
		return "Loading “" + title + "”…"
	}
	return "Loading…"
}

func failedMessage(title string) string {
	if title != "" {
		return "⚠️ Loading “" + title + "” failed!"
	}
	return "⚠️ Loading failed!"
}
