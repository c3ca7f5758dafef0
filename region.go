package htmlinclude

import (
	"bytes"
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Region is the isolated render region owned by an element.
//
// A Region is created once per element and never recreated. Each call to
// SetText or SetHTML replaces its content wholesale. Markup is parsed with
// the HTML5 fragment rules used by a browser's innerHTML and is neither
// sanitised nor transformed.
type Region struct {
	markup bool
	text   string
	nodes  []*nethtml.Node
}

func newRegion() *Region {
	return &Region{}
}

// SetText replaces the region's content with a single text node.
func (r *Region) SetText(s string) {
	r.markup = false
	r.text = s
	r.nodes = nil
}

// SetHTML replaces the region's content with parsed markup.
func (r *Region) SetHTML(markup string) {
	// The reader is a strings.Reader, so parsing cannot fail on I/O.
	nodes, err := nethtml.ParseFragment(strings.NewReader(markup), fragmentContext())
	if err != nil {
		nodes = []*nethtml.Node{{Type: nethtml.TextNode, Data: markup}}
	}
	r.markup = true
	r.text = ""
	r.nodes = nodes
}

// IsMarkup reports whether the region currently holds fetched markup
// rather than a text placeholder.
func (r *Region) IsMarkup() bool {
	return r.markup
}

// Nodes returns the parsed markup, or nil for text content.
func (r *Region) Nodes() []*nethtml.Node {
	return r.nodes
}

// Text returns the region's text content.
func (r *Region) Text() string {
	if !r.markup {
		return r.text
	}
	var sb strings.Builder
	for _, n := range r.nodes {
		collectText(&sb, n)
	}
	return sb.String()
}

// HTML serialises the region's content.
func (r *Region) HTML() string {
	if !r.markup {
		return html.EscapeString(r.text)
	}
	var buf bytes.Buffer
	for _, n := range r.nodes {
		// bytes.Buffer writes do not fail.
		_ = nethtml.Render(&buf, n)
	}
	return buf.String()
}

// Render returns the region as a declarative closed shadow root.
//
// Placed as the first child of the host element, the browser attaches it
// as the element's shadow tree, keeping outer document styles out.
func (r *Region) Render() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<template shadowrootmode="closed">`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, r.HTML()); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</template>`)
		return err
	})
}

// fragmentContext is the context element for parsing region markup. A
// shadow root parses like the body of a document.
func fragmentContext() *nethtml.Node {
	return &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
}

func collectText(sb *strings.Builder, n *nethtml.Node) {
	if n.Type == nethtml.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}
