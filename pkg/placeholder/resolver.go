// Package placeholder substitutes ${path} references in node parameters with
// values read from a state tree.
package placeholder

import (
	"regexp"
	"strings"

	"github.com/aretw0/flowmanager/pkg/state"
)

// pattern matches a whole string of the form ${path}. Embedded placeholders
// ("Hello ${name}") are deliberately not interpolated.
var pattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)

var brackets = regexp.MustCompile(`\[(\d+)\]`)

// Getter reads a value by dotted path. *state.Manager satisfies it.
type Getter interface {
	Get(path string) any
}

// Resolve walks v and replaces every exact ${path} string with the value found
// at path. Maps, ordered objects (anything implementing state.Mapper) and
// slices are rebuilt; the input is never mutated. Unresolvable paths yield nil.
func Resolve(v any, src Getter) any {
	switch t := v.(type) {
	case string:
		return resolveString(t, src)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Resolve(item, src)
		}
		return out
	case state.Mapper:
		return Resolve(t.ToMap(), src)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Resolve(item, src)
		}
		return out
	default:
		return v
	}
}

// Params resolves a parameter object. A nil object resolves to nil.
func Params(v any, src Getter) map[string]any {
	if v == nil {
		return nil
	}
	out, _ := Resolve(v, src).(map[string]any)
	return out
}

// Path extracts the normalized path from s when s is exactly a placeholder
// with a non-blank path.
func Path(s string) (string, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	path := Normalize(m[1])
	return path, path != ""
}

// Normalize rewrites bracket indices to dotted segments: items[0].name -> items.0.name.
func Normalize(path string) string {
	path = brackets.ReplaceAllString(strings.TrimSpace(path), ".$1")
	return strings.TrimPrefix(path, ".")
}

func resolveString(s string, src Getter) any {
	path, ok := Path(s)
	if !ok {
		return s
	}
	if src == nil {
		return nil
	}
	return src.Get(path)
}
