package state

import (
	"strconv"
	"strings"
)

// Split breaks a dotted path into segments. Empty segments are kept so that
// "a..b" never resolves as "a.b".
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Lookup walks segments through maps and slices. Numeric segments index slices.
func Lookup(root any, segments []string) (any, bool) {
	current := root
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case Mapper:
			v, ok := node.ToMap()[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}
