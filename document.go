package htmlinclude

import (
	"fmt"
	"slices"
)

// Document is a minimal host environment for custom elements.
//
// It owns the loop every element it creates schedules on, stores
// attributes, and delivers the lifecycle callbacks a browser would:
// attribute changes for observed attributes, and a connection callback
// each time a node is appended. Document methods must be called from the
// goroutine driving the loop.
type Document struct {
	reg     *Registry
	loop    *Loop
	onError func(node *Node, err error)
	errs    []error
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithErrorHandler sets the callback receiving errors that elements
// report. Errors are recorded in Errors regardless.
func WithErrorHandler(fn func(node *Node, err error)) DocumentOption {
	return func(d *Document) {
		d.onError = fn
	}
}

// NewDocument creates a document backed by reg and loop.
func NewDocument(reg *Registry, loop *Loop, opts ...DocumentOption) *Document {
	d := &Document{reg: reg, loop: loop}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Loop returns the document's loop.
func (d *Document) Loop() *Loop {
	return d.loop
}

// Errors returns every error reported by the document's elements, in
// report order.
func (d *Document) Errors() []error {
	return d.errs
}

// CreateElement instantiates the element defined for tag. The element is
// constructed immediately and is not connected.
func (d *Document) CreateElement(tag string) (*Node, error) {
	ctor, ok := d.reg.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("htmlinclude: no element defined for %q", tag)
	}
	n := &Node{
		doc:   d,
		tag:   tag,
		attrs: make(map[string]string),
	}
	n.elem = ctor(n)
	n.observed = n.elem.ObservedAttributes()
	return n, nil
}

// Append connects n. OnConnected runs on every call, including when n is
// already connected.
func (d *Document) Append(n *Node) {
	n.connected = true
	n.elem.OnConnected()
}

// Remove disconnects n. Outstanding work started by the element is not
// cancelled.
func (d *Document) Remove(n *Node) {
	n.connected = false
}

func (d *Document) report(n *Node, err error) {
	d.errs = append(d.errs, err)
	if d.onError != nil {
		d.onError(n, err)
	}
}

// Node is a document node hosting one element. It implements Host.
type Node struct {
	doc       *Document
	tag       string
	elem      Element
	observed  []string
	order     []string
	attrs     map[string]string
	connected bool
}

// Tag returns the node's tag name.
func (n *Node) Tag() string {
	return n.tag
}

// Element returns the element hosted by n.
func (n *Node) Element() Element {
	return n.elem
}

// Loop returns the owning document's loop.
func (n *Node) Loop() *Loop {
	return n.doc.loop
}

// Attribute returns the value of the named attribute.
func (n *Node) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Attributes returns the node's attributes as name/value pairs in the
// order they were first set.
func (n *Node) Attributes() [][2]string {
	out := make([][2]string, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, [2]string{name, n.attrs[name]})
	}
	return out
}

// SetAttribute sets name to value. Setting an observed attribute always
// notifies the element, even when the value does not change.
func (n *Node) SetAttribute(name, value string) {
	old, existed := n.attrs[name]
	if !existed {
		n.order = append(n.order, name)
	}
	n.attrs[name] = value
	if slices.Contains(n.observed, name) {
		n.elem.OnAttributeChanged(name, old, value)
	}
}

// RemoveAttribute removes name. The element is notified only if the
// attribute was present.
func (n *Node) RemoveAttribute(name string) {
	old, existed := n.attrs[name]
	if !existed {
		return
	}
	delete(n.attrs, name)
	n.order = slices.DeleteFunc(n.order, func(s string) bool { return s == name })
	if slices.Contains(n.observed, name) {
		n.elem.OnAttributeChanged(name, old, "")
	}
}

// IsConnected reports whether n is part of the document.
func (n *Node) IsConnected() bool {
	return n.connected
}

// ReportError forwards err to the document.
func (n *Node) ReportError(err error) {
	n.doc.report(n, err)
}
