// Package fiber resolves DOM nodes to their owning UI components by
// walking the framework-internal tree records attached to page elements.
//
// The record shape is an undocumented, version-varying contract, so every
// field access here is guarded: any lookup failure degrades to "no
// further info" instead of propagating an error. All knowledge of the
// attachment convention lives behind the TreeLookup interface.
package fiber

import "github.com/standardbeagle/picket/internal/dom"

// Source is the original source location of a component, present only in
// development-instrumented trees. Its absence is expected, not an error.
type Source struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// ComponentType models the declared type of a composite record: a
// function or class component, or one of the wrapper kinds (forwardRef,
// memo, lazy) that nest the real type one level down.
type ComponentType struct {
	// DisplayName is the explicitly declared display name, if any.
	DisplayName string
	// Name is the function or class name.
	Name string
	// Render is the nested render function of a forwarded-ref wrapper.
	Render *ComponentType
	// Inner is the nested type of a memoized or lazy wrapper.
	Inner *ComponentType
}

// Record is one framework-internal tree node. Parent links form a chain
// mirroring the component hierarchy up to the root.
type Record struct {
	// Type is the declared type: *ComponentType for composite records,
	// a string host tag (e.g. "div") for host records, or nil.
	Type any
	// Parent is the ancestor link.
	Parent *Record
	// Props is the last-committed properties snapshot.
	Props map[string]any
	// Source is the record's own debug-source field.
	Source *Source
}

// TreeLookup locates the internal tree record attached to a DOM node.
// It is the single place that knows the attachment-key convention.
type TreeLookup interface {
	Attachment(n *dom.Node) (*Record, bool)
}

// reactAttachmentPrefixes are the expando-key prefixes used across
// framework versions and build modes.
var reactAttachmentPrefixes = []string{
	"__reactFiber$",
	"__reactInternalInstance$",
	"__reactContainer$",
}

// ReactLookup implements TreeLookup for the React-family attachment
// convention: the first own key matching a recognized prefix holds the
// per-node record.
type ReactLookup struct{}

// Attachment scans the node's own property keys in order and returns the
// record under the first recognized attachment key.
func (ReactLookup) Attachment(n *dom.Node) (*Record, bool) {
	if n == nil {
		return nil, false
	}
	for _, key := range n.ExpandoKeys() {
		if !hasAttachmentPrefix(key) {
			continue
		}
		v, ok := n.Expando(key)
		if !ok {
			continue
		}
		if rec, ok := v.(*Record); ok && rec != nil {
			return rec, true
		}
		// Unexpected shape under a recognized key: treat as no attachment
		// rather than failing the walk.
	}
	return nil, false
}

func hasAttachmentPrefix(key string) bool {
	for _, prefix := range reactAttachmentPrefixes {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
