package htmlinclude

import (
	"fmt"
	"strings"
	"sync"
)

// Constructor creates an element for the node that hosts it.
type Constructor func(host Host) Element

// Registry maps custom element tag names to constructors.
//
// Definitions are explicit: nothing registers itself in init. Define
// panics on a duplicate or malformed tag so mistakes surface at startup,
// not while documents are being built.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Constructor)}
}

// Define registers ctor under tag.
func (reg *Registry) Define(tag string, ctor Constructor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if !validTagName(tag) {
		panic(fmt.Sprintf("htmlinclude: invalid custom element name %q", tag))
	}
	if _, exists := reg.defs[tag]; exists {
		panic(fmt.Sprintf("htmlinclude: %q is already defined", tag))
	}
	reg.defs[tag] = ctor
}

// Lookup returns the constructor registered for tag.
func (reg *Registry) Lookup(tag string) (Constructor, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ctor, ok := reg.defs[strings.ToLower(tag)]
	return ctor, ok
}

// Register defines the include element under TagName. opts apply to every
// element the registry creates. Elements created for a Document schedule
// on the document's loop unless opts name another one.
func Register(reg *Registry, opts ...Option) {
	reg.Define(TagName, func(host Host) Element {
		if lh, ok := host.(interface{ Loop() *Loop }); ok {
			return New(host, append([]Option{WithLoop(lh.Loop())}, opts...)...)
		}
		return New(host, opts...)
	})
}

// validTagName applies the basic custom element name rules: lower case,
// starting with a letter, containing a hyphen.
func validTagName(tag string) bool {
	if tag == "" || tag[0] < 'a' || tag[0] > 'z' || !strings.Contains(tag, "-") {
		return false
	}
	return tag == strings.ToLower(tag)
}
