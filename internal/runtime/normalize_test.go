package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/flowmanager/pkg/domain"
)

func TestNormalize(t *testing.T) {
	obj := map[string]any{"value": 1}
	ordered := domain.NewObject("x", 1)

	cases := []struct {
		name string
		in   any
		want domain.StepOutput
	}{
		{"nil", nil, domain.StepOutput{Edges: []string{"pass"}}},
		{"string", "done", domain.StepOutput{Edges: []string{"done"}, Results: []any{"done"}}},
		{"string slice", []string{"a", "b"}, domain.StepOutput{Edges: []string{"a", "b"}}},
		{"any slice of strings", []any{"a", "b"}, domain.StepOutput{Edges: []string{"a", "b"}}},
		{"mixed slice", []any{"a", 1}, domain.StepOutput{Edges: []string{"pass"}, Results: []any{[]any{"a", 1}}}},
		{"empty slice", []any{}, domain.StepOutput{Edges: []string{"pass"}, Results: []any{[]any{}}}},
		{"int slice", []int{1, 2}, domain.StepOutput{Edges: []string{"pass"}, Results: []any{[]int{1, 2}}}},
		{"plain object", obj, domain.StepOutput{Edges: []string{"pass"}, Results: []any{obj}}},
		{"ordered object", ordered, domain.StepOutput{Edges: []string{"pass"}, Results: []any{ordered}}},
		{"number", 42, domain.StepOutput{Edges: []string{"pass"}, Results: []any{42}}},
		{"bool", false, domain.StepOutput{Edges: []string{"pass"}, Results: []any{false}}},
		{"step output", domain.StepOutput{Edges: []string{"b"}}, domain.StepOutput{Edges: []string{"b"}}},
		{"step output without edges", &domain.StepOutput{Results: []any{1}}, domain.StepOutput{Edges: []string{"pass"}, Results: []any{1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalize(context.Background(), tc.in))
		})
	}
}

func TestNormalize_EdgeFunctions(t *testing.T) {
	ctx := context.Background()
	ok := func(v any) domain.EdgeFunc {
		return func(context.Context) (any, error) { return v, nil }
	}
	fail := domain.EdgeFunc(func(context.Context) (any, error) { return nil, errors.New("edge broke") })

	t.Run("ordered edges", func(t *testing.T) {
		out := normalize(ctx, domain.Edges{{Name: "second", Fn: ok(2)}, {Name: "first", Fn: fail}})
		assert.Equal(t, []string{"second", "first"}, out.Edges)
		assert.Equal(t, []any{2, map[string]any{"error": "edge broke"}}, out.Results)
	})

	t.Run("object keeps declared order and skips plain values", func(t *testing.T) {
		o := domain.NewObject("z", ok("z"), "meta", "ignored", "a", func(context.Context) (any, error) { return "a", nil })
		out := normalize(ctx, o)
		assert.Equal(t, []string{"z", "a"}, out.Edges)
		assert.Equal(t, []any{"z", "a"}, out.Results)
	})

	t.Run("map uses sorted keys", func(t *testing.T) {
		out := normalize(ctx, map[string]any{"yes": ok(true), "no": ok(false)})
		assert.Equal(t, []string{"no", "yes"}, out.Edges)
		assert.Equal(t, []any{false, true}, out.Results)
	})
}
