package compiler

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/flowmanager/pkg/domain"
)

// Definition is a flow file: a node list plus optional seed state and input.
type Definition struct {
	Name  string
	Nodes []any
	State map[string]any
	Input any
}

// LoadFile reads a YAML or JSON flow definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}
	def, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Load parses a flow definition. The document is either a node list or a
// mapping with a "nodes" list and optional "name", "state" and "input" keys.
// Mappings inside nodes become *domain.Object so declared key order survives.
func Load(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("failed to parse flow: empty document")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}

	root, err := convert(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}

	switch v := root.(type) {
	case []any:
		return &Definition{Nodes: v}, nil
	case *domain.Object:
		return fromObject(v)
	}
	return nil, fmt.Errorf("failed to parse flow: expected a node list or a mapping with nodes, got %T", root)
}

func fromObject(o *domain.Object) (*Definition, error) {
	raw, ok := o.Get("nodes")
	if !ok {
		return nil, fmt.Errorf("failed to parse flow: missing \"nodes\"")
	}
	nodes, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse flow: \"nodes\" must be a list, got %T", raw)
	}

	def := &Definition{Nodes: nodes}
	if name, ok := o.Get("name"); ok {
		def.Name = fmt.Sprint(name)
	}
	if st, ok := o.Get("state"); ok && st != nil {
		obj, ok := st.(*domain.Object)
		if !ok {
			return nil, fmt.Errorf("failed to parse flow: \"state\" must be a mapping, got %T", st)
		}
		def.State = toPlain(obj).(map[string]any)
	}
	if in, ok := o.Get("input"); ok {
		def.Input = toPlain(in)
	}
	return def, nil
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convert(n.Content[0])
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		obj := domain.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
			v, err := convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// toPlain flattens ordered objects into plain maps, for state seeds and inputs.
func toPlain(v any) any {
	switch t := v.(type) {
	case *domain.Object:
		out := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out[k] = toPlain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toPlain(item)
		}
		return out
	}
	return v
}
