package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowmanager/internal/runtime"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
)

func askNode(pauseID string) domain.NodeFunc {
	return node(func(ctx context.Context, fc domain.FlowContext) (any, error) {
		answer, err := fc.HumanInput(ctx, pauseID, map[string]any{"question": "approve?"})
		if err != nil {
			return nil, err
		}
		return answer, nil
	})
}

func TestEngine_HumanInputResumedByListener(t *testing.T) {
	h := hub.New()
	h.AddEventListener(hub.EventPaused, func(data any) {
		ev := data.(hub.PausedEvent)
		assert.Equal(t, "run-1", ev.FlowInstanceID)
		h.Resume(ev.PauseID, "approved")
	})

	e, err := runtime.NewEngine([]any{askNode("approval")}, runtime.WithHub(h), runtime.WithFlowInstanceID("run-1"))
	require.NoError(t, err)

	steps, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"approved"}, steps[0].Output.Edges)
	assert.Empty(t, h.ActivePauses())
}

func TestEngine_HumanInputResumedFromAnotherGoroutine(t *testing.T) {
	h := hub.New()
	e, err := runtime.NewEngine([]any{askNode("p1"), askNode("")}, runtime.WithHub(h))
	require.NoError(t, err)

	done := make(chan []domain.ExecutionStep)
	go func() {
		steps, runErr := e.Run(context.Background())
		assert.NoError(t, runErr)
		done <- steps
	}()

	require.Eventually(t, func() bool { return h.IsPaused("p1") }, time.Second, time.Millisecond)
	assert.True(t, h.Resume("p1", map[string]any{"ok": true}))

	var second string
	require.Eventually(t, func() bool {
		active := h.ActivePauses()
		if len(active) == 1 {
			second = active[0].PauseID
			return true
		}
		return false
	}, time.Second, time.Millisecond)
	assert.NotEmpty(t, second)
	assert.True(t, h.Resume(second, "done"))

	steps := <-done
	require.Len(t, steps, 2)
	assert.Equal(t, []any{map[string]any{"ok": true}}, steps[0].Output.Results)
	assert.Equal(t, []string{"done"}, steps[1].Output.Edges)
}

func TestEngine_HumanInputCancelled(t *testing.T) {
	h := hub.New()
	h.AddEventListener(hub.EventPaused, func(data any) {
		h.Cancel(data.(hub.PausedEvent).PauseID, "rejected")
	})

	e, err := runtime.NewEngine([]any{askNode("x")}, runtime.WithHub(h))
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, hub.ErrPauseCancelled)
}

func TestEngine_HumanInputContextTimeout(t *testing.T) {
	h := hub.New()
	e, err := runtime.NewEngine([]any{askNode("slow")}, runtime.WithHub(h))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.IsPaused("slow"), "an abandoned pause remains visible")
}
