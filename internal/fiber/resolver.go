package fiber

import (
	"unicode"
	"unicode/utf8"

	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/sanitize"
)

// StackLimit is how many ancestor entries the display surfaces. The walk
// itself is unbounded; callers truncate.
const StackLimit = 5

// internalConstructs are display names of framework plumbing that never
// counts as a "real" component.
var internalConstructs = map[string]struct{}{
	"Fragment":      {},
	"Suspense":      {},
	"SuspenseList":  {},
	"StrictMode":    {},
	"Profiler":      {},
	"Provider":      {},
	"Consumer":      {},
	"Context":       {},
	"Portal":        {},
	"ErrorBoundary": {},
	"ForwardRef":    {},
	"Memo":          {},
	"Lazy":          {},
}

// Component is the ephemeral result of one resolution call. It is owned
// by the caller and discarded after formatting; the embedded record
// back-reference is transient and never serialized.
type Component struct {
	Name       string
	Properties map[string]any
	Source     *Source

	record *Record
}

// StackEntry is one ancestor in the component stack.
type StackEntry struct {
	Name   string  `json:"name"`
	Source *Source `json:"source,omitempty"`
}

// Resolver resolves DOM nodes to components through a TreeLookup.
type Resolver struct {
	lookup TreeLookup
	opts   sanitize.Options
}

// NewResolver creates a resolver. A nil lookup defaults to the
// React-family convention.
func NewResolver(lookup TreeLookup, opts sanitize.Options) *Resolver {
	if lookup == nil {
		lookup = ReactLookup{}
	}
	return &Resolver{lookup: lookup, opts: opts}
}

// Resolve walks from the node's attached record up the ancestor chain to
// the nearest record passing the validity predicate. It returns nil when
// the node has no attachment or no ancestor qualifies; it never panics.
func (r *Resolver) Resolve(n *dom.Node) *Component {
	rec, ok := r.lookup.Attachment(n)
	if !ok {
		return nil
	}

	for cur := rec; cur != nil; cur = cur.Parent {
		name, valid := validName(cur)
		if !valid {
			continue
		}
		props := cur.Props
		if props == nil {
			props = map[string]any{}
		}
		return &Component{
			Name:       name,
			Properties: sanitize.Map(props, r.opts),
			Source:     sourceFor(cur),
			record:     cur,
		}
	}
	return nil
}

// ResolveStack walks the full ancestor chain collecting every record that
// passes the validity predicate, skipping duplicate names. The returned
// list is unbounded; displays take the first StackLimit entries.
func (r *Resolver) ResolveStack(n *dom.Node) []StackEntry {
	rec, ok := r.lookup.Attachment(n)
	if !ok {
		return nil
	}

	var stack []StackEntry
	seen := map[string]struct{}{}
	for cur := rec; cur != nil; cur = cur.Parent {
		name, valid := validName(cur)
		if !valid {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		stack = append(stack, StackEntry{Name: name, Source: cur.Source})
	}
	return stack
}

// sourceFor returns the record's own debug source, or the nearest
// ancestor's. Production builds carry none; that returns nil.
func sourceFor(rec *Record) *Source {
	for cur := rec; cur != nil; cur = cur.Parent {
		if cur.Source != nil {
			return cur.Source
		}
	}
	return nil
}

// validName applies the validity predicate and returns the resolved
// display name when the record is a real named component.
func validName(rec *Record) (string, bool) {
	if rec == nil || rec.Type == nil {
		return "", false
	}
	ct, ok := rec.Type.(*ComponentType)
	if !ok || ct == nil {
		// Host tags and other shapes are not composite components.
		return "", false
	}
	name := displayName(ct)
	if name == "" {
		return "", false
	}
	if _, excluded := internalConstructs[name]; excluded {
		return "", false
	}
	if name[0] == '_' || name[0] == '$' {
		return "", false
	}
	first, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(first) {
		return "", false
	}
	return name, true
}

// displayName resolves a component type's name: explicit display name,
// then function/class name, then the wrapped render function's name,
// then the wrapped inner type's name.
func displayName(ct *ComponentType) string {
	if ct == nil {
		return ""
	}
	if ct.DisplayName != "" {
		return ct.DisplayName
	}
	if ct.Name != "" {
		return ct.Name
	}
	if ct.Render != nil {
		if n := displayName(ct.Render); n != "" {
			return n
		}
	}
	if ct.Inner != nil {
		if n := displayName(ct.Inner); n != "" {
			return n
		}
	}
	return ""
}
