// Package sanitize deep-copies arbitrary property values into a bounded,
// cycle-safe, JSON-serializable form suitable for display and for
// crossing the page/content-script boundary.
//
// The routine is pure and total: for any input, including cyclic or
// adversarially large graphs, it terminates and returns a bounded value
// holding no reference into the original graph.
package sanitize

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/standardbeagle/picket/internal/dom"
)

// Placeholder markers substituted for values that cannot or must not be
// serialized.
const (
	DOMMarker       = "[DOM]"
	CircularMarker  = "[Circular]"
	TruncatedMarker = "[Truncated]"
	ErrorMarker     = "[Error]"
)

// Options bound the sanitized output.
type Options struct {
	// MaxDepth is the maximum nesting depth before a value collapses to
	// TruncatedMarker regardless of type.
	MaxDepth int
	// ListBreadth is the maximum retained list entries.
	ListBreadth int
	// MapBreadth is the maximum retained mapping keys.
	MapBreadth int
}

// DefaultOptions mirror the picker defaults: depth 3, five list entries,
// ten mapping keys.
func DefaultOptions() Options {
	return Options{MaxDepth: 3, ListBreadth: 5, MapBreadth: 10}
}

func (o Options) normalized() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.ListBreadth <= 0 {
		o.ListBreadth = 5
	}
	if o.MapBreadth <= 0 {
		o.MapBreadth = 10
	}
	return o
}

// Value sanitizes a single value.
func Value(v any, opts Options) any {
	s := &state{opts: opts.normalized(), seen: map[uintptr]struct{}{}}
	return s.value(v, 0)
}

// Map sanitizes a properties mapping, applying the private-key and
// children exclusions at the top level like every nested level.
func Map(props map[string]any, opts Options) map[string]any {
	out := Value(props, opts)
	if m, ok := out.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

type state struct {
	opts Options
	seen map[uintptr]struct{}
}

func (s *state) value(v any, depth int) (out any) {
	// A property that misbehaves when read or copied must never abort
	// sanitization of its siblings.
	defer func() {
		if r := recover(); r != nil {
			out = ErrorMarker
		}
	}()

	if v == nil {
		return nil
	}

	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}

	if _, ok := v.(*dom.Node); ok {
		return DOMMarker
	}
	if _, ok := v.(dom.Node); ok {
		return DOMMarker
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return funcPlaceholder(rv)

	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		if s.cycle(rv.Pointer()) {
			return CircularMarker
		}
		return s.value(rv.Elem().Interface(), depth)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil
			}
			if rv.Len() > 0 && s.cycle(rv.Pointer()) {
				return CircularMarker
			}
		}
		return s.list(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if s.cycle(rv.Pointer()) {
			return CircularMarker
		}
		return s.mapping(rv, depth)

	case reflect.Struct:
		return s.structMapping(rv, depth)

	default:
		// Channels, complex numbers and the rest have no display form.
		return fmt.Sprintf("%v", v)
	}
}

// cycle records an object identity and reports whether it was already
// seen earlier in this sanitize call. The set is per-call, never shared.
func (s *state) cycle(ptr uintptr) bool {
	if _, ok := s.seen[ptr]; ok {
		return true
	}
	s.seen[ptr] = struct{}{}
	return false
}

func (s *state) list(rv reflect.Value, depth int) any {
	if depth >= s.opts.MaxDepth {
		return TruncatedMarker
	}
	n := rv.Len()
	keep := n
	if keep > s.opts.ListBreadth {
		keep = s.opts.ListBreadth
	}
	out := make([]any, 0, keep+1)
	for i := 0; i < keep; i++ {
		out = append(out, s.value(rv.Index(i).Interface(), depth+1))
	}
	if n > keep {
		out = append(out, fmt.Sprintf("...%d more", n-keep))
	}
	return out
}

func (s *state) mapping(rv reflect.Value, depth int) any {
	if depth >= s.opts.MaxDepth {
		return TruncatedMarker
	}
	if rv.Type().Key().Kind() != reflect.String {
		return fmt.Sprintf("%v", rv.Interface())
	}

	// Element-shaped objects collapse to a short placeholder instead of
	// being expanded.
	if name, ok := elementShape(rv); ok {
		return fmt.Sprintf("<%s />", name)
	}

	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	out := make(map[string]any, s.opts.MapBreadth+1)
	kept, omitted := 0, 0
	for _, k := range keys {
		if strings.HasPrefix(k, "_") || k == "children" {
			continue
		}
		if kept >= s.opts.MapBreadth {
			omitted++
			continue
		}
		out[k] = s.value(rv.MapIndex(reflect.ValueOf(k)).Interface(), depth+1)
		kept++
	}
	if omitted > 0 {
		out["..."] = fmt.Sprintf("%d more keys", omitted)
	}
	return out
}

func (s *state) structMapping(rv reflect.Value, depth int) any {
	if depth >= s.opts.MaxDepth {
		return TruncatedMarker
	}
	t := rv.Type()
	out := make(map[string]any)
	kept, omitted := 0, 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if kept >= s.opts.MapBreadth {
			omitted++
			continue
		}
		out[f.Name] = s.value(rv.Field(i).Interface(), depth+1)
		kept++
	}
	if omitted > 0 {
		out["..."] = fmt.Sprintf("%d more keys", omitted)
	}
	return out
}

// elementShape recognizes composite-element-shaped mappings by their
// internal type tag and extracts a display name for the placeholder.
func elementShape(rv reflect.Value) (string, bool) {
	tag := rv.MapIndex(reflect.ValueOf("$$typeof"))
	if !tag.IsValid() {
		return "", false
	}
	typ := rv.MapIndex(reflect.ValueOf("type"))
	if typ.IsValid() {
		if name, ok := typ.Interface().(string); ok && name != "" {
			return name, true
		}
	}
	return "Anonymous", true
}

// funcPlaceholder renders a function value as a fixed placeholder
// embedding its name, or "anonymous" for closures and unnamed functions.
func funcPlaceholder(rv reflect.Value) string {
	name := "anonymous"
	if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
		full := fn.Name()
		if i := strings.LastIndex(full, "/"); i >= 0 {
			full = full[i+1:]
		}
		if i := strings.LastIndex(full, "."); i >= 0 {
			full = full[i+1:]
		}
		full = strings.TrimSuffix(full, "-fm")
		if full != "" && !isAnonymousName(full) {
			name = full
		}
	}
	return fmt.Sprintf("ƒ %s()", name)
}

func isAnonymousName(name string) bool {
	if !strings.HasPrefix(name, "func") {
		return false
	}
	rest := name[len("func"):]
	if rest == "" {
		return true
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
