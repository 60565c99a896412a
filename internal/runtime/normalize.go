package runtime

import (
	"context"
	"sort"

	"github.com/aretw0/flowmanager/pkg/domain"
)

// normalize converts whatever a node returned into a StepOutput.
func normalize(ctx context.Context, v any) domain.StepOutput {
	switch t := v.(type) {
	case nil:
		return domain.Pass()
	case domain.StepOutput:
		return t.Normalize()
	case *domain.StepOutput:
		if t == nil {
			return domain.Pass()
		}
		return t.Normalize()
	case string:
		return domain.StepOutput{Edges: []string{t}, Results: []any{t}}
	case []string:
		if len(t) > 0 {
			return domain.StepOutput{Edges: append([]string(nil), t...)}
		}
		return single(t)
	case []any:
		if edges, ok := stringList(t); ok {
			return domain.StepOutput{Edges: edges}
		}
		return single(t)
	case domain.Edges:
		if len(t) == 0 {
			return single(t)
		}
		return runEdges(ctx, t)
	case *domain.Object:
		if edges := objectEdges(t); len(edges) > 0 {
			return runEdges(ctx, edges)
		}
		return single(t)
	case map[string]any:
		if edges := mapEdges(t); len(edges) > 0 {
			return runEdges(ctx, edges)
		}
		return single(t)
	}
	return single(v)
}

func single(v any) domain.StepOutput {
	return domain.StepOutput{Edges: []string{domain.EdgePass}, Results: []any{v}}
}

func stringList(list []any) ([]string, bool) {
	if len(list) == 0 {
		return nil, false
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func objectEdges(o *domain.Object) domain.Edges {
	var edges domain.Edges
	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		if fn, ok := domain.AsEdgeFunc(v); ok {
			edges = append(edges, domain.Edge{Name: k, Fn: fn})
		}
	}
	return edges
}

// mapEdges collects edge functions from a plain map in sorted key order.
func mapEdges(m map[string]any) domain.Edges {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if _, ok := domain.AsEdgeFunc(v); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	edges := make(domain.Edges, 0, len(keys))
	for _, k := range keys {
		fn, _ := domain.AsEdgeFunc(m[k])
		edges = append(edges, domain.Edge{Name: k, Fn: fn})
	}
	return edges
}

// runEdges invokes every edge function in order. A failing edge yields
// {"error": message} in its slot and does not affect the others.
func runEdges(ctx context.Context, edges domain.Edges) domain.StepOutput {
	out := domain.StepOutput{
		Edges:   make([]string, 0, len(edges)),
		Results: make([]any, 0, len(edges)),
	}
	for _, edge := range edges {
		out.Edges = append(out.Edges, edge.Name)
		if edge.Fn == nil {
			out.Results = append(out.Results, nil)
			continue
		}
		res, err := edge.Fn(ctx)
		if err != nil {
			out.Results = append(out.Results, map[string]any{"error": err.Error()})
			continue
		}
		out.Results = append(out.Results, res)
	}
	return out
}
