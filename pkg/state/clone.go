package state

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// ErrNotSerializable is returned when a value cannot be represented as a state tree
// (functions, channels, complex numbers, cycles).
var ErrNotSerializable = errors.New("value is not tree-serializable")

// maxDepth bounds recursion so cyclic maps fail instead of overflowing the stack.
const maxDepth = 512

// Mapper is implemented by ordered containers that can flatten themselves into a plain map.
type Mapper interface {
	ToMap() map[string]any
}

// Clone returns a structural deep copy of v made only of maps, slices and scalars.
// Structs are flattened with mapstructure; values implementing json.Marshaler
// (time.Time, for example) go through a JSON round-trip.
func Clone(v any) (any, error) {
	return clone(v, 0, true)
}

// CloneLoose behaves like Clone but keeps unsupported leaves by reference instead of failing.
// It is used for step snapshots, whose results are not required to be trees.
func CloneLoose(v any) any {
	out, _ := clone(v, 0, false)
	return out
}

// CloneMap clones a map and returns an empty map for nil input.
func CloneMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	out, err := Clone(m)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func clone(v any, depth int, strict bool) (any, error) {
	if depth > maxDepth {
		if strict {
			return nil, fmt.Errorf("%w: nesting deeper than %d (cycle?)", ErrNotSerializable, maxDepth)
		}
		return v, nil
	}

	switch t := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			c, err := clone(item, depth+1, strict)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := clone(item, depth+1, strict)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case Mapper:
		return clone(t.ToMap(), depth+1, strict)
	case json.Marshaler:
		return cloneViaJSON(t, strict)
	case encoding.TextMarshaler:
		text, err := t.MarshalText()
		if err != nil {
			return failOrKeep(v, strict, err)
		}
		return string(text), nil
	}

	return cloneReflect(v, depth, strict)
}

func cloneReflect(v any, depth int, strict bool) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return clone(rv.Elem().Interface(), depth+1, strict)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			c, err := clone(rv.Index(i).Interface(), depth+1, strict)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return failOrKeep(v, strict, fmt.Errorf("map key type %s", rv.Type().Key()))
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			c, err := clone(iter.Value().Interface(), depth+1, strict)
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = c
		}
		return out, nil
	case reflect.Struct:
		flat := make(map[string]any)
		if err := mapstructure.Decode(v, &flat); err != nil {
			return failOrKeep(v, strict, err)
		}
		return clone(flat, depth+1, strict)
	}

	return failOrKeep(v, strict, fmt.Errorf("unsupported kind %s", rv.Kind()))
}

func cloneViaJSON(v json.Marshaler, strict bool) (any, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return failOrKeep(v, strict, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return failOrKeep(v, strict, err)
	}
	return out, nil
}

func failOrKeep(v any, strict bool, cause error) (any, error) {
	if strict {
		return nil, fmt.Errorf("%w: %T: %v", ErrNotSerializable, v, cause)
	}
	return v, nil
}
