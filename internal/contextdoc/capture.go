package contextdoc

import (
	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/fiber"
	"github.com/standardbeagle/picket/internal/protocol"
)

// Capture bundles everything handed from click-commit to the composition
// dialog: the resolved component (nil for a raw-element fallback), the
// rendered artifacts, the originating rect, and the ancestor name stack.
// It is created once per commit, mutated only by the dialog (edited
// document), consumed exactly once by the relay send, and not retained.
type Capture struct {
	Element   *dom.Node
	Component *fiber.Component
	Markup    string
	Document  string
	Rect      dom.Rect
	Stack     []string
}

// NewCapture formats the element and assembles the capture bundle.
func NewCapture(el *dom.Node, comp *fiber.Component, stack []fiber.StackEntry) *Capture {
	res := Format(el, comp, stack)
	names := make([]string, 0, len(stack))
	for _, entry := range stack {
		names = append(names, entry.Name)
	}
	c := &Capture{
		Element:   el,
		Component: comp,
		Markup:    res.Markup,
		Document:  res.Document,
		Stack:     names,
	}
	if el != nil {
		c.Rect = el.Rect
	}
	return c
}

// ElementInfo builds the wire payload from the capture's current state,
// including any dialog edits to the document.
func (c *Capture) ElementInfo() *protocol.ElementInfo {
	info := &protocol.ElementInfo{MarkdownContext: c.Document, JSX: c.Markup}
	if c.Element != nil {
		info.TagName = c.Element.TagName
		info.ClassName = c.Element.ClassName()
		info.ID = c.Element.ID
	}
	if c.Component != nil {
		info.ComponentName = c.Component.Name
		info.Props = c.Component.Properties
		if c.Component.Source != nil {
			info.FilePath = c.Component.Source.FilePath
		}
	} else if c.Element != nil {
		info.ComponentName = "<" + c.Element.TagName + ">"
	}
	return info
}
