// Package compiler classifies raw workflow definitions into domain.Node values.
package compiler

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/registry"
)

// Scope resolves string references. *registry.Registry satisfies it.
type Scope interface {
	Lookup(ref string) (registry.Entry, bool)
}

// Compiler turns raw node definitions into tagged domain.Node values.
type Compiler struct {
	scope Scope
}

// New creates a compiler resolving references against scope. A nil scope
// leaves every reference unresolved.
func New(scope Scope) *Compiler {
	return &Compiler{scope: scope}
}

// CompileAll compiles a node list.
func (c *Compiler) CompileAll(raws []any) []domain.Node {
	out := make([]domain.Node, len(raws))
	for i, raw := range raws {
		out[i] = c.Compile(raw)
	}
	return out
}

// Compile classifies a single raw definition. It never fails: nodes that
// cannot run carry their reason in Node.Err.
func (c *Compiler) Compile(raw any) domain.Node {
	if raw == nil {
		return empty()
	}
	if fn, ok := domain.AsNodeFunc(raw); ok {
		return domain.Node{
			Kind: domain.KindCallable,
			Func: fn,
			Info: domain.Descriptor{Kind: domain.KindCallable, Name: funcName(raw), Label: "function"},
		}
	}

	switch v := raw.(type) {
	case string:
		return c.reference(v)
	case *domain.Object:
		if v == nil {
			return empty()
		}
		return c.object(v.Keys(), v.ToMap())
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return c.object(keys, v)
	}

	if list, ok := AsList(raw); ok {
		return c.list(list)
	}

	err := &domain.ValidationError{
		Kind: domain.KindInvalid,
		Err:  fmt.Errorf("%w: unsupported node type %T", domain.ErrInvalidNode, raw),
	}
	return domain.Node{
		Kind: domain.KindInvalid,
		Info: domain.Descriptor{Kind: domain.KindInvalid, Label: fmt.Sprintf("%T", raw)},
		Err:  err,
	}
}

func (c *Compiler) lookup(ref string) (registry.Entry, bool) {
	if c.scope == nil {
		return registry.Entry{}, false
	}
	return c.scope.Lookup(ref)
}

func (c *Compiler) reference(ref string) domain.Node {
	entry, ok := c.lookup(ref)
	if !ok {
		return domain.Node{
			Kind: domain.KindReference,
			Info: domain.Descriptor{Kind: domain.KindReference, Label: ref},
			Err:  &domain.ValidationError{Kind: domain.KindReference, Ref: ref, Err: domain.ErrUnresolvedReference},
		}
	}
	info := entry.Descriptor()
	info.Label = ref
	return domain.Node{Kind: domain.KindReference, Func: entry.Implementation, Info: info}
}

func (c *Compiler) object(keys []string, values map[string]any) domain.Node {
	if len(keys) == 0 {
		return empty()
	}

	if len(keys) == 1 {
		key := keys[0]
		params := values[key]
		if isParamObject(params) {
			if entry, ok := c.lookup(key); ok {
				info := entry.Descriptor()
				info.Kind = domain.KindCall
				info.Label = key
				return domain.Node{Kind: domain.KindCall, Func: entry.Implementation, Params: params, Info: info}
			}
		}
	}

	branches := make([]domain.Branch, len(keys))
	for i, k := range keys {
		branches[i] = domain.Branch{Edge: k, Nodes: branchNodes(values[k])}
	}
	return domain.Node{
		Kind:     domain.KindBranch,
		Branches: branches,
		Info:     domain.Descriptor{Kind: domain.KindBranch, Label: strings.Join(keys, "|")},
	}
}

func (c *Compiler) list(list []any) domain.Node {
	if len(list) == 0 {
		return empty()
	}
	if body, ok := AsList(list[0]); ok && len(body) > 0 {
		return domain.Node{
			Kind:     domain.KindLoop,
			Children: body,
			Info:     domain.Descriptor{Kind: domain.KindLoop, Label: "loop"},
		}
	}
	return domain.Node{
		Kind:     domain.KindSubflow,
		Children: list,
		Info:     domain.Descriptor{Kind: domain.KindSubflow, Label: "subflow"},
	}
}

func empty() domain.Node {
	return domain.Node{Kind: domain.KindEmpty, Info: domain.Descriptor{Kind: domain.KindEmpty}}
}

// isParamObject reports whether v can be the argument of a parameterized call.
func isParamObject(v any) bool {
	switch t := v.(type) {
	case nil, map[string]any:
		return true
	case *domain.Object:
		return t != nil
	}
	return false
}

func branchNodes(v any) []any {
	if list, ok := AsList(v); ok {
		return list
	}
	return []any{v}
}

// AsList converts any slice or array (except byte slices) to []any.
func AsList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
