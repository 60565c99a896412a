package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/registry"
)

// Edges produced by compare.
const (
	EdgeLess    = "less"
	EdgeEqual   = "equal"
	EdgeGreater = "greater"
)

// Builtins returns the scope flow files run against. log writes to out.
func Builtins(out io.Writer) *registry.Registry {
	r := registry.New()
	mustRegister(r, "set", "Write params.value at params.path", set)
	mustRegister(r, "get", "Read the state at params.path", get)
	mustRegister(r, "log", "Print params.message", logTo(out))
	mustRegister(r, "increment", "Add params.by (default 1) to the number at params.path", increment)
	mustRegister(r, "compare", "Compare params.left and params.right: less, equal or greater", compare)
	mustRegister(r, "whileLess", "Loop controller: continue while the number at params.path is below params.limit", whileLess)
	mustRegister(r, "prompt", "Pause for human input; the answer becomes an edge", prompt)
	return r
}

func mustRegister(r *registry.Registry, name, desc string, fn domain.NodeFunc) {
	if err := r.Register(registry.Entry{Name: name, Description: desc, Implementation: fn}); err != nil {
		panic(err)
	}
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

func set(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return nil, fc.State().Set(path, params["value"])
}

func get(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return domain.StepOutput{Edges: []string{domain.EdgePass}, Results: []any{fc.State().Get(path)}}, nil
}

func logTo(out io.Writer) domain.NodeFunc {
	return func(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
		msg, ok := params["message"]
		if !ok {
			msg = fc.Input()
		}
		_, err := fmt.Fprintln(out, msg)
		return nil, err
	}
}

func increment(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	by := 1.0
	if raw, ok := params["by"]; ok {
		if by, ok = toFloat(raw); !ok {
			return nil, fmt.Errorf("parameter \"by\" must be a number, got %T", raw)
		}
	}

	current := 0.0
	if raw := fc.State().Get(path); raw != nil {
		var ok bool
		if current, ok = toFloat(raw); !ok {
			return nil, fmt.Errorf("%s holds %T, not a number", path, raw)
		}
	}

	next := number(current + by)
	if err := fc.State().Set(path, next); err != nil {
		return nil, err
	}
	return domain.StepOutput{Edges: []string{domain.EdgePass}, Results: []any{next}}, nil
}

func compare(_ context.Context, _ domain.FlowContext, params map[string]any) (any, error) {
	left, right := params["left"], params["right"]

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	var c int
	switch {
	case lok && rok:
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	default:
		c = strings.Compare(fmt.Sprint(left), fmt.Sprint(right))
	}

	switch {
	case c < 0:
		return []string{EdgeLess}, nil
	case c > 0:
		return []string{EdgeGreater}, nil
	}
	return []string{EdgeEqual}, nil
}

func whileLess(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	limit, ok := toFloat(params["limit"])
	if !ok {
		return nil, fmt.Errorf("parameter \"limit\" must be a number, got %T", params["limit"])
	}

	current := 0.0
	if raw := fc.State().Get(path); raw != nil {
		if current, ok = toFloat(raw); !ok {
			return nil, fmt.Errorf("%s holds %T, not a number", path, raw)
		}
	}
	if current < limit {
		return domain.StepOutput{Edges: []string{domain.EdgeContinue}, Results: []any{fc.Input()}}, nil
	}
	return []string{domain.EdgeExit}, nil
}

func prompt(ctx context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
	id, _ := params["id"].(string)
	details := map[string]any{"message": params["message"]}
	if choices, ok := params["choices"]; ok {
		details["choices"] = choices
	}

	answer, err := fc.HumanInput(ctx, id, details)
	if err != nil {
		return nil, err
	}
	if s, ok := answer.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return answer, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// number keeps whole values as int so YAML-authored counters stay ints.
func number(f float64) any {
	if f == float64(int(f)) {
		return int(f)
	}
	return f
}
