// Package contextdoc renders a resolved component and its DOM element
// into the two presentational artifacts the picker ships around: a
// reconstructed markup line and a human-readable markdown document. Both
// transforms are deterministic and side-effect free.
package contextdoc

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/fiber"
)

// InlineLimit is the JSON length above which an attribute value is
// elided to {...} in reconstructed markup.
const InlineLimit = 50

// textPreviewLimit bounds the trimmed text rendered as an element body.
const textPreviewLimit = 50

// Result holds the two rendered artifacts.
type Result struct {
	Markup   string
	Document string
}

// Format renders the element and its resolved component (nil for a
// raw-element fallback) plus an optional ancestor stack.
func Format(el *dom.Node, comp *fiber.Component, stack []fiber.StackEntry) Result {
	markup := renderMarkup(el, comp)
	doc := renderDocument(el, comp, stack, markup)
	return Result{Markup: markup, Document: doc}
}

func renderMarkup(el *dom.Node, comp *fiber.Component) string {
	tag := ""
	var props map[string]any
	if comp != nil {
		tag = comp.Name
		props = comp.Properties
	}
	if tag == "" && el != nil {
		tag = el.TagName
	}
	if tag == "" {
		tag = "unknown"
	}

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)

	for _, key := range sortedKeys(props) {
		if key == "..." {
			continue // breadth-summary entry, not a real prop
		}
		b.WriteString(" ")
		b.WriteString(renderAttribute(key, props[key]))
	}

	if el != nil && el.HasRenderableBody() {
		b.WriteString(">")
		b.WriteString(bodyPreview(el))
		b.WriteString("</")
		b.WriteString(tag)
		b.WriteString(">")
	} else {
		b.WriteString(" />")
	}
	return b.String()
}

func renderAttribute(key string, v any) string {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "ƒ ") {
			return key + "={...}"
		}
		if len(val) > InlineLimit {
			return key + "={...}"
		}
		return fmt.Sprintf("%s=%q", key, val)
	case bool:
		if val {
			return key
		}
		return key + "={false}"
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%s={%v}", key, val)
	case float32, float64:
		return fmt.Sprintf("%s={%v}", key, val)
	case nil:
		return key + "={null}"
	default:
		data, err := json.Marshal(v)
		if err != nil || len(data) > InlineLimit {
			return key + "={...}"
		}
		return fmt.Sprintf("%s={%s}", key, data)
	}
}

func bodyPreview(el *dom.Node) string {
	text := strings.TrimSpace(el.Text)
	if text == "" {
		return "..."
	}
	if len(text) > textPreviewLimit {
		return text[:textPreviewLimit]
	}
	return text
}

func renderDocument(el *dom.Node, comp *fiber.Component, stack []fiber.StackEntry, markup string) string {
	var b strings.Builder

	name := "Unknown"
	if comp != nil && comp.Name != "" {
		name = comp.Name
	} else if el != nil {
		name = "<" + el.TagName + ">"
	}
	fmt.Fprintf(&b, "## %s\n\n", name)

	if comp != nil && comp.Source != nil {
		fmt.Fprintf(&b, "**Source:** `%s`\n\n", sourceRef(comp.Source))
	}

	b.WriteString("```jsx\n")
	b.WriteString(markup)
	b.WriteString("\n```\n")

	if comp != nil && len(displayProps(comp.Properties)) > 0 {
		pretty, err := json.MarshalIndent(displayProps(comp.Properties), "", "  ")
		if err == nil {
			b.WriteString("\n**Props:**\n\n```json\n")
			b.Write(pretty)
			b.WriteString("\n```\n")
		}
	}

	if len(stack) > 0 {
		b.WriteString("\n**Component stack:**\n\n")
		limit := len(stack)
		if limit > fiber.StackLimit {
			limit = fiber.StackLimit
		}
		for _, entry := range stack[:limit] {
			if entry.Source != nil {
				fmt.Fprintf(&b, "- %s (%s)\n", entry.Name, path.Base(entry.Source.FilePath))
			} else {
				fmt.Fprintf(&b, "- %s\n", entry.Name)
			}
		}
	}

	if el != nil {
		b.WriteString("\n**Element:**\n\n")
		fmt.Fprintf(&b, "- Tag: %s\n", el.TagName)
		if el.ID != "" {
			fmt.Fprintf(&b, "- ID: %s\n", el.ID)
		}
		if len(el.Classes) > 0 {
			fmt.Fprintf(&b, "- Classes: %s\n", el.ClassName())
		}
		fmt.Fprintf(&b, "- Size: %.0f×%.0fpx\n", el.Rect.Width, el.Rect.Height)
	}

	return b.String()
}

// sourceRef renders a source location as basename:line, stripping the
// directory path.
func sourceRef(src *fiber.Source) string {
	base := path.Base(src.FilePath)
	if src.Line > 0 {
		return fmt.Sprintf("%s:%d", base, src.Line)
	}
	return base
}

// displayProps drops the breadth-summary entry when it is the only
// content, so empty sanitized props render no section.
func displayProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	return props
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
