package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/flowmanager/internal/runtime"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")
	h := hub.New()
	defer m.Attach(h)()

	ok := func(context.Context, domain.FlowContext, map[string]any) (any, error) { return nil, nil }
	eng, err := runtime.NewEngine([]any{ok, []any{ok, ok}},
		runtime.WithHub(h),
		runtime.WithLifecycleHooks(m.Hooks()),
	)
	require.NoError(t, err)
	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps), "only top-level steps are counted")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 2, testutil.CollectAndCount(m.nodeDuration), "one series per kind/outcome pair")
}

func TestMetrics_FailedRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "")
	h := hub.New()
	defer m.Attach(h)()

	eng, err := runtime.NewEngine([]any{
		func(context.Context, domain.FlowContext, map[string]any) (any, error) { return nil, errors.New("x") },
	}, runtime.WithHub(h), runtime.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	_, err = eng.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.nodeDuration))
}

func TestMetrics_Pauses(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "")
	h := hub.New()
	defer m.Attach(h)()

	p1 := h.RequestPause(hub.PauseRequest{PauseID: "a"})
	h.RequestPause(hub.PauseRequest{PauseID: "b"})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activePauses))

	h.Resume(p1.ID(), nil)
	h.Cancel("b", "stop")
	h.Resume("missing", nil)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.activePauses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauseOutcomes.WithLabelValues("resumed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauseOutcomes.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauseOutcomes.WithLabelValues("failed")))
}

func TestChainHooks(t *testing.T) {
	var calls []string
	hooks := ChainHooks(
		domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.HookEvent) { calls = append(calls, "a") }},
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.HookEvent) { calls = append(calls, "b") }},
	)
	hooks.OnNodeEnter(context.Background(), &domain.HookEvent{})
	hooks.OnNodeLeave(context.Background(), &domain.HookEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
}
