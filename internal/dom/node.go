// Package dom models the slice of the page the picker operates on: the
// element under the pointer, its geometry, and the expando properties
// where framework internals attach their per-node tree records.
package dom

import "strings"

// Rect is an element's rendered bounding box in page pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is one element of the rendered page. Expando holds the element's
// own property keys; the framework attaches its internal tree record
// under a key with a recognizable prefix.
type Node struct {
	TagName  string
	ID       string
	Classes  []string
	Rect     Rect
	Text     string
	Children []*Node

	// Expando preserves insertion order so attachment-key scans see the
	// same first-match behavior as enumerating a live element's keys.
	expandoKeys []string
	expando     map[string]any
}

// NewNode creates a node with the given tag name.
func NewNode(tag string) *Node {
	return &Node{TagName: strings.ToLower(tag), expando: make(map[string]any)}
}

// SetExpando attaches a property to the node, keeping first-set key order.
func (n *Node) SetExpando(key string, value any) {
	if n.expando == nil {
		n.expando = make(map[string]any)
	}
	if _, ok := n.expando[key]; !ok {
		n.expandoKeys = append(n.expandoKeys, key)
	}
	n.expando[key] = value
}

// ExpandoKeys returns the node's own property keys in insertion order.
func (n *Node) ExpandoKeys() []string {
	return n.expandoKeys
}

// Expando returns the value stored under key, if any.
func (n *Node) Expando(key string) (any, bool) {
	v, ok := n.expando[key]
	return v, ok
}

// ClassName returns the space-joined class attribute value.
func (n *Node) ClassName() string {
	return strings.Join(n.Classes, " ")
}

// HasRenderableBody reports whether the node has child elements or
// non-empty text, which decides self-closing vs. elided-body markup.
func (n *Node) HasRenderableBody() bool {
	return len(n.Children) > 0 || strings.TrimSpace(n.Text) != ""
}
