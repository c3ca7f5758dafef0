package htmlinclude

import "context"

// Element is implemented by custom elements that a Document can host.
//
// The host calls OnAttributeChanged whenever one of the attributes named
// by ObservedAttributes is set or removed (including the initial
// assignment at parse time), and OnConnected every time the element
// becomes part of a live document. Removed attributes are reported with
// an empty newValue.
type Element interface {
	ObservedAttributes() []string
	OnAttributeChanged(name, oldValue, newValue string)
	OnConnected()
}

// Host is the view an element has of the node hosting it.
//
// ReportError receives errors from asynchronous operations that nothing
// else awaits. It is where a failed load surfaces to the host document.
type Host interface {
	Attribute(name string) (string, bool)
	IsConnected() bool
	ReportError(err error)
}

// Fetcher is the network capability used to resolve src.
//
// Fetch issues a bare GET-equivalent request: no custom headers, no
// credentials. A non-nil error means no response was received.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (Response, error)
}

// Response is a received, not yet consumed, fetch response.
type Response interface {
	// OK reports whether the status is in the 2xx range.
	OK() bool
	Status() int
	StatusText() string
	// Text reads the full body. It may block and is always awaited.
	Text(ctx context.Context) (string, error)
}
