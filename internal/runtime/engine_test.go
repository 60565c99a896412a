package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowmanager/internal/runtime"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/registry"
)

func node(fn func(ctx context.Context, fc domain.FlowContext) (any, error)) domain.NodeFunc {
	return func(ctx context.Context, fc domain.FlowContext, _ map[string]any) (any, error) {
		return fn(ctx, fc)
	}
}

func returns(v any) domain.NodeFunc {
	return node(func(context.Context, domain.FlowContext) (any, error) { return v, nil })
}

func newEngine(t *testing.T, nodes []any, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	opts = append([]runtime.EngineOption{runtime.WithHub(hub.New())}, opts...)
	e, err := runtime.NewEngine(nodes, opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_PlainObjectResult(t *testing.T) {
	e := newEngine(t, []any{returns(map[string]any{"value": 1})})

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, []string{"pass"}, steps[0].Output.Edges)
	assert.Equal(t, []any{map[string]any{"value": 1}}, steps[0].Output.Results)
}

func TestEngine_StringListBecomesEdges(t *testing.T) {
	e := newEngine(t, []any{returns([]string{"left", "right"})})

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right"}, steps[0].Output.Edges)
	assert.Nil(t, steps[0].Output.Results)
}

func TestEngine_InputFlowsBetweenSteps(t *testing.T) {
	var seen any
	nodes := []any{
		returns(map[string]any{"value": 1}),
		node(func(_ context.Context, fc domain.FlowContext) (any, error) {
			seen = fc.Input()
			return map[string]any{"value": 2}, nil
		}),
	}
	e := newEngine(t, nodes)

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, map[string]any{"value": 1}, steps[0].Output.Results[0])
	assert.Equal(t, map[string]any{"value": 1}, seen)
	assert.Equal(t, map[string]any{"value": 2}, steps[1].Output.Results[0])
}

func TestEngine_InitialInputAndMultipleResults(t *testing.T) {
	var inputs []any
	record := node(func(_ context.Context, fc domain.FlowContext) (any, error) {
		inputs = append(inputs, fc.Input())
		return nil, nil
	})
	nodes := []any{
		record,
		returns(domain.StepOutput{Edges: []string{"pass"}, Results: []any{1, 2}}),
		record,
		record,
	}
	e := newEngine(t, nodes, runtime.WithInput("seed"))

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"seed", []any{1, 2}, nil}, inputs)
}

func TestEngine_BranchFollowsPreviousEdges(t *testing.T) {
	var ran []string
	mark := func(name string, out any) domain.NodeFunc {
		return node(func(context.Context, domain.FlowContext) (any, error) {
			ran = append(ran, name)
			return out, nil
		})
	}
	nodes := []any{
		returns(domain.StepOutput{Edges: []string{"b"}}),
		domain.NewObject("a", mark("a", "from-a"), "b", mark("b", map[string]any{"picked": "b"})),
	}
	e := newEngine(t, nodes)

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ran)

	branch := steps[1]
	require.Len(t, branch.SubSteps, 1)
	assert.Equal(t, branch.SubSteps[0].Output, branch.Output)
	assert.Equal(t, []any{map[string]any{"picked": "b"}}, branch.Output.Results)
}

func TestEngine_BranchFirstDeclaredMatchWins(t *testing.T) {
	var ran []string
	mark := func(name string) domain.NodeFunc {
		return node(func(context.Context, domain.FlowContext) (any, error) {
			ran = append(ran, name)
			return nil, nil
		})
	}
	nodes := []any{
		returns([]string{"x", "y"}),
		domain.NewObject("y", mark("y"), "x", mark("x")),
	}

	_, err := newEngine(t, nodes).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, ran)
}

func TestEngine_BranchWithoutMatchPasses(t *testing.T) {
	nodes := []any{
		returns([]string{"other"}),
		domain.NewObject("a", returns(1), "b", returns(2)),
	}

	steps, err := newEngine(t, nodes).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pass"}, steps[1].Output.Edges)
	assert.Empty(t, steps[1].SubSteps)
}

func TestEngine_ErrorAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	later := false
	nodes := []any{
		returns("first"),
		node(func(context.Context, domain.FlowContext) (any, error) { return nil, boom }),
		node(func(context.Context, domain.FlowContext) (any, error) {
			later = true
			return nil, nil
		}),
	}
	e := newEngine(t, nodes)

	steps, err := e.Run(context.Background())
	assert.Nil(t, steps)
	assert.True(t, err == boom, "the node error must be returned unchanged")
	assert.False(t, later)
	assert.Len(t, e.Steps(), 1, "completed steps stay inspectable")
}

func TestEngine_NestedErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("deep")
	nodes := []any{
		[]any{returns(1), []any{node(func(context.Context, domain.FlowContext) (any, error) { return nil, boom })}},
	}

	_, err := newEngine(t, nodes).Run(context.Background())
	assert.True(t, err == boom)
}

func TestEngine_UnresolvedReferenceContinues(t *testing.T) {
	ran := false
	nodes := []any{
		"ghost",
		node(func(_ context.Context, fc domain.FlowContext) (any, error) {
			ran = true
			return nil, nil
		}),
	}

	steps, err := newEngine(t, nodes).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, []string{"error"}, steps[0].Output.Edges)
	assert.Contains(t, steps[0].Output.ErrorDetails, "ghost")
	assert.True(t, ran)
}

func TestEngine_UnsupportedNode(t *testing.T) {
	steps, err := newEngine(t, []any{42}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"error", "pass"}, steps[0].Output.Edges)
	assert.NotEmpty(t, steps[0].Output.ErrorDetails)
}

func TestEngine_EmptyNodesPass(t *testing.T) {
	steps, err := newEngine(t, []any{nil, []any{}, domain.NewObject()}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for _, s := range steps {
		assert.Equal(t, []string{"pass"}, s.Output.Edges)
	}
}

func TestEngine_ScopeReferencesAndCalls(t *testing.T) {
	scope := registry.New()
	var got map[string]any
	require.NoError(t, scope.Register(registry.Entry{ID: "g1", Name: "greet", Implementation: func(_ context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
		got = params
		return "greeted", nil
	}}))

	nodes := []any{
		"g1:greet",
		domain.NewObject("greet", map[string]any{"who": "${user.name}", "tags": []any{"${user.tags[1]}"}}),
	}
	e := newEngine(t, nodes,
		runtime.WithScope(scope),
		runtime.WithInitialState(map[string]any{"user": map[string]any{"name": "ada", "tags": []any{"a", "b"}}}),
	)

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"greeted"}, steps[0].Output.Edges)
	assert.Equal(t, "greet", steps[0].Node.Name)
	assert.Equal(t, map[string]any{"who": "ada", "tags": []any{"b"}}, got)
	assert.Equal(t, domain.KindCall, steps[1].Node.Kind)
}

func TestEngine_SubflowMergesState(t *testing.T) {
	nodes := []any{
		node(func(_ context.Context, fc domain.FlowContext) (any, error) {
			return nil, fc.State().Set("before", true)
		}),
		[]any{
			node(func(_ context.Context, fc domain.FlowContext) (any, error) {
				assert.Equal(t, true, fc.State().Get("before"))
				return nil, fc.State().Set("inner", "x")
			}),
			returns("last"),
		},
	}
	e := newEngine(t, nodes)

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", e.State().Get("inner"))
	assert.Equal(t, []string{"last"}, steps[1].Output.Edges)
	assert.Len(t, steps[1].SubSteps, 2)
}

func TestEngine_ChildStateIsNotMergedOnError(t *testing.T) {
	boom := errors.New("fail")
	nodes := []any{
		[]any{
			node(func(_ context.Context, fc domain.FlowContext) (any, error) {
				return nil, fc.State().Set("partial", 1)
			}),
			node(func(context.Context, domain.FlowContext) (any, error) { return nil, boom }),
		},
	}
	e := newEngine(t, nodes)

	_, err := e.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, e.State().Get("partial"))
}

func TestEngine_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	nodes := []any{
		node(func(context.Context, domain.FlowContext) (any, error) {
			ran++
			cancel()
			return nil, nil
		}),
		node(func(context.Context, domain.FlowContext) (any, error) {
			ran++
			return nil, nil
		}),
	}

	_, err := newEngine(t, nodes).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran)
}

func TestEngine_RunResetsSteps(t *testing.T) {
	e := newEngine(t, []any{returns(1)})

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestEngine_ReturnedStepsAreCopies(t *testing.T) {
	e := newEngine(t, []any{returns(map[string]any{"v": 1})})

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	steps[0].Output.Results[0].(map[string]any)["v"] = 99

	assert.Equal(t, 1, e.Steps()[0].Output.Results[0].(map[string]any)["v"])
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered, left []domain.Kind
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, ev *domain.HookEvent) { entered = append(entered, ev.Node.Kind) },
		OnNodeLeave: func(_ context.Context, ev *domain.HookEvent) {
			left = append(left, ev.Node.Kind)
			assert.NotNil(t, ev.Output)
		},
	}
	nodes := []any{returns(1), []any{returns(2)}}

	_, err := newEngine(t, nodes, runtime.WithLifecycleHooks(hooks)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Kind{domain.KindCallable, domain.KindSubflow, domain.KindCallable}, entered)
	assert.Equal(t, []domain.Kind{domain.KindCallable, domain.KindCallable, domain.KindSubflow}, left)
}

func TestEngine_Notifications(t *testing.T) {
	h := hub.New()
	var starts, ends int
	var steps []domain.StepEvent
	h.AddEventListener(hub.EventStart, func(any) { starts++ })
	h.AddEventListener(hub.EventEnd, func(data any) {
		ends++
		assert.NoError(t, data.(domain.EndEvent).Err)
	})
	h.AddEventListener(hub.EventStep, func(data any) { steps = append(steps, data.(domain.StepEvent)) })

	nodes := []any{
		node(func(_ context.Context, fc domain.FlowContext) (any, error) {
			return nil, fc.State().Set("k", "v")
		}),
		[]any{returns(1)},
	}
	e, err := runtime.NewEngine(nodes, runtime.WithHub(h), runtime.WithFlowInstanceID("run-7"))
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
	require.Len(t, steps, 3)
	assert.Equal(t, 0, steps[0].Depth)
	assert.Equal(t, map[string]any{"k": "v"}, steps[0].State)
	assert.Equal(t, 1, steps[1].Depth, "child steps are published with their depth")
	assert.Equal(t, 0, steps[2].Depth)
	assert.Equal(t, "run-7", steps[2].FlowInstanceID)
}

func TestEngine_CustomNodeEvents(t *testing.T) {
	var received []domain.NodeEvent
	nodes := []any{
		node(func(_ context.Context, fc domain.FlowContext) (any, error) {
			off := fc.On("ping", func(ev domain.NodeEvent) { received = append(received, ev) })
			fc.Emit("ping", 1)
			fc.Emit("other", 2)
			off()
			fc.Emit("ping", 3)
			return nil, nil
		}),
	}

	_, err := newEngine(t, nodes).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, 1, received[0].Data)
	assert.Equal(t, domain.KindCallable, received[0].Node.Kind)
}
