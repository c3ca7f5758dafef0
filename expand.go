package htmlinclude

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxDepth bounds how deeply included content may itself include.
const DefaultMaxDepth = 8

// ErrMaxDepth is reported for includes left unexpanded because they are
// nested deeper than the expander's limit.
var ErrMaxDepth = errors.New("htmlinclude: include nesting too deep")

// Report summarises one expansion.
type Report struct {
	Includes int
	Loaded   int
	Failed   int
	// Errors holds what the include elements reported. They are not fatal
	// to the document: it is still written.
	Errors []error
}

// Expander resolves <html-include> elements in a whole document ahead of
// time, the way a browser would after parsing it.
//
// Every include is run through an IncludeElement, so its output is the
// element's region at rest: the fetched markup, or the loading or failed
// placeholder. Each region is written as a declarative shadow root inside
// its <html-include> element.
type Expander struct {
	fetcher  Fetcher
	logger   *slog.Logger
	maxDepth int
	minify   bool
	elemOpts []Option
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithExpanderFetcher sets the fetcher used by every include.
func WithExpanderFetcher(f Fetcher) ExpanderOption {
	return func(x *Expander) { x.fetcher = f }
}

// WithExpanderLogger sets the logger for expansion records and element traces.
func WithExpanderLogger(l *slog.Logger) ExpanderOption {
	return func(x *Expander) { x.logger = l }
}

// WithMaxDepth sets how many levels of nested includes are expanded.
func WithMaxDepth(n int) ExpanderOption {
	return func(x *Expander) { x.maxDepth = n }
}

// WithMinify minifies the written document.
func WithMinify() ExpanderOption {
	return func(x *Expander) { x.minify = true }
}

// WithElementOptions passes opts to every include element.
func WithElementOptions(opts ...Option) ExpanderOption {
	return func(x *Expander) { x.elemOpts = append(x.elemOpts, opts...) }
}

// NewExpander creates an Expander.
func NewExpander(opts ...ExpanderOption) *Expander {
	x := &Expander{
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.fetcher == nil {
		x.fetcher = NewHTTPFetcher(WithFetchLogger(x.logger))
	}
	return x
}

type placed struct {
	src  *nethtml.Node
	node *Node
}

// Expand parses a document from r and writes the expanded document to w.
//
// The returned error is only non-nil when the document cannot be parsed
// or written, or ctx ends before every include settles.
func (x *Expander) Expand(ctx context.Context, r io.Reader, w io.Writer) (*Report, error) {
	root, err := nethtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	report, err := x.expandTree(ctx, []*nethtml.Node{root}, 0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := nethtml.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	out := buf.Bytes()
	if x.minify {
		m := minify.New()
		m.AddFunc("text/html", minhtml.Minify)
		min, err := m.Bytes("text/html", out)
		if err != nil {
			return nil, fmt.Errorf("minify document: %w", err)
		}
		out = min
	}

	if _, err := w.Write(out); err != nil {
		return nil, err
	}
	return report, nil
}

// ExpandNode runs a single include with the given attributes and returns
// its element once settled, along with the errors it reported.
//
// Includes inside loaded content are expanded into the element's region
// too. Their failures are logged, not returned.
func (x *Expander) ExpandNode(ctx context.Context, attrs [][2]string) (*IncludeElement, []error, error) {
	loop := NewLoop(ctx)
	doc := x.newDocument(loop)

	node, err := doc.CreateElement(TagName)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range attrs {
		node.SetAttribute(a[0], a[1])
	}
	doc.Append(node)

	if err := loop.RunUntilIdle(ctx); err != nil {
		return nil, nil, err
	}

	elem := node.Element().(*IncludeElement)
	if elem.Loaded() {
		tmpl := &nethtml.Node{Type: nethtml.ElementNode, Data: "template", DataAtom: atom.Template}
		for _, n := range elem.Region().Nodes() {
			tmpl.AppendChild(n)
		}
		if _, err := x.expandTree(ctx, []*nethtml.Node{tmpl}, 1); err != nil {
			return nil, nil, err
		}
	}
	return elem, doc.Errors(), nil
}

func (x *Expander) newDocument(loop *Loop) *Document {
	reg := NewRegistry()
	opts := append([]Option{WithFetcher(x.fetcher), WithLogger(x.logger)}, x.elemOpts...)
	Register(reg, opts...)

	return NewDocument(reg, loop, WithErrorHandler(func(n *Node, err error) {
		src, _ := n.Attribute(AttrSrc)
		x.logger.Warn("htmlinclude: include failed", "src", src, "error", err)
	}))
}

// expandTree expands the includes below roots, which sit at the given
// nesting depth, round by round until no loaded content holds another
// include.
func (x *Expander) expandTree(ctx context.Context, roots []*nethtml.Node, depth int) (*Report, error) {
	loop := NewLoop(ctx)
	doc := x.newDocument(loop)
	report := &Report{}

	for ; len(roots) > 0; depth++ {
		var found []*nethtml.Node
		for _, r := range roots {
			found = append(found, findIncludes(r)...)
		}
		if len(found) == 0 {
			break
		}
		if depth >= x.maxDepth {
			report.Errors = append(report.Errors, fmt.Errorf("%w: %d unexpanded at depth %d", ErrMaxDepth, len(found), depth))
			x.logger.Warn("htmlinclude: nesting too deep", "depth", depth, "unexpanded", len(found))
			break
		}

		var round []placed
		for _, src := range found {
			node, err := doc.CreateElement(TagName)
			if err != nil {
				return nil, err
			}
			for _, a := range src.Attr {
				if a.Namespace == "" {
					node.SetAttribute(a.Key, a.Val)
				}
			}
			doc.Append(node)
			round = append(round, placed{src: src, node: node})
		}

		if err := loop.RunUntilIdle(ctx); err != nil {
			return nil, err
		}

		roots = roots[:0]
		for _, p := range round {
			elem := p.node.Element().(*IncludeElement)
			report.Includes++
			switch {
			case elem.Loaded():
				report.Loaded++
			case elem.Failed():
				report.Failed++
			}
			tmpl := attachShadowRoot(p.src, elem.Region())
			if elem.Loaded() {
				roots = append(roots, tmpl)
			}
		}

		x.logger.Debug("htmlinclude: expanded", "depth", depth, "includes", len(round))
	}

	report.Errors = append(doc.Errors(), report.Errors...)
	return report, nil
}

// findIncludes returns the <html-include> elements below n, not looking
// inside shadow roots that were already attached.
func findIncludes(n *nethtml.Node) []*nethtml.Node {
	var out []*nethtml.Node
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode {
			if n.Data == TagName && !hasShadowRoot(n) {
				out = append(out, n)
			}
			if isShadowRoot(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// attachShadowRoot inserts the region as a declarative shadow root, first
// child of host, and returns the template node.
func attachShadowRoot(host *nethtml.Node, region *Region) *nethtml.Node {
	tmpl := &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "template",
		DataAtom: atom.Template,
		Attr:     []nethtml.Attribute{{Key: "shadowrootmode", Val: "closed"}},
	}
	if region.IsMarkup() {
		for _, c := range region.Nodes() {
			tmpl.AppendChild(c)
		}
	} else {
		tmpl.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: region.Text()})
	}
	host.InsertBefore(tmpl, host.FirstChild)
	return tmpl
}

func isShadowRoot(n *nethtml.Node) bool {
	if n.Type != nethtml.ElementNode || n.DataAtom != atom.Template {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "shadowrootmode" {
			return true
		}
	}
	return false
}

func hasShadowRoot(n *nethtml.Node) bool {
	return n.FirstChild != nil && isShadowRoot(n.FirstChild)
}
