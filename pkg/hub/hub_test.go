package hub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PauseResume(t *testing.T) {
	h := hub.New()

	var paused []hub.PausedEvent
	h.AddEventListener(hub.EventPaused, func(data any) {
		paused = append(paused, data.(hub.PausedEvent))
	})

	p := h.RequestPause(hub.PauseRequest{PauseID: "approve", Details: "need ok", FlowInstanceID: "run-1"})
	require.Equal(t, "approve", p.ID())
	assert.True(t, h.IsPaused("approve"))
	require.Len(t, paused, 1)
	assert.Equal(t, "need ok", paused[0].Details)

	go func() {
		assert.True(t, h.Resume("approve", "yes"))
	}()

	got, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yes", got)
	assert.False(t, h.IsPaused("approve"))
	assert.Empty(t, h.ActivePauses())
}

func TestHub_ResumeIsExactlyOnce(t *testing.T) {
	h := hub.New()
	var failures []hub.ResumeFailedEvent
	h.AddEventListener(hub.EventResumeFailed, func(data any) {
		failures = append(failures, data.(hub.ResumeFailedEvent))
	})

	p := h.RequestPause(hub.PauseRequest{PauseID: "once"})
	assert.True(t, h.Resume("once", 1))
	assert.False(t, h.Resume("once", 2))

	got, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.Len(t, failures, 1)
	assert.Equal(t, "once", failures[0].PauseID)
}

func TestHub_ResumeUnknown(t *testing.T) {
	h := hub.New()
	assert.False(t, h.Resume("ghost", nil))
}

func TestHub_IDCollisionMintsFreshID(t *testing.T) {
	h := hub.New()

	first := h.RequestPause(hub.PauseRequest{PauseID: "dup"})
	second := h.RequestPause(hub.PauseRequest{PauseID: "dup"})

	assert.Equal(t, "dup", first.ID())
	assert.NotEqual(t, "dup", second.ID())
	assert.NotEmpty(t, second.ID())
	assert.Len(t, h.ActivePauses(), 2)
}

func TestHub_EmptyIDIsMinted(t *testing.T) {
	h := hub.New(hub.WithIDGenerator(func() string { return "fixed" }))

	p := h.RequestPause(hub.PauseRequest{})
	assert.Equal(t, "fixed", p.ID())

	// generator keeps returning a taken id; the hub still guarantees uniqueness
	q := h.RequestPause(hub.PauseRequest{})
	assert.NotEqual(t, "fixed", q.ID())
}

func TestHub_Cancel(t *testing.T) {
	h := hub.New()
	var cancelled []hub.CancelledEvent
	h.AddEventListener(hub.EventPauseCancelled, func(data any) {
		cancelled = append(cancelled, data.(hub.CancelledEvent))
	})

	p := h.RequestPause(hub.PauseRequest{PauseID: "c", FlowInstanceID: "run"})
	assert.True(t, h.Cancel("c", "operator"))
	assert.False(t, h.Cancel("c", "again"))

	_, err := p.Wait(context.Background())
	assert.True(t, errors.Is(err, hub.ErrPauseCancelled))
	assert.Contains(t, err.Error(), "operator")
	require.Len(t, cancelled, 1)
	assert.Equal(t, "run", cancelled[0].FlowInstanceID)
}

func TestHub_WaitContextCancelKeepsPause(t *testing.T) {
	h := hub.New()
	p := h.RequestPause(hub.PauseRequest{PauseID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.IsPaused("slow"))
}

func TestHub_ActivePausesOrdered(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	h := hub.New(hub.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	h.RequestPause(hub.PauseRequest{PauseID: "b"})
	h.RequestPause(hub.PauseRequest{PauseID: "a"})

	active := h.ActivePauses()
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].PauseID)
	assert.Equal(t, "a", active[1].PauseID)

	info, ok := h.Pause("a")
	require.True(t, ok)
	assert.Equal(t, base.Add(2*time.Second), info.RequestedAt)
}

func TestHub_ListenerPanicIsIsolated(t *testing.T) {
	h := hub.New()
	var calls []string

	h.AddEventListener("custom", func(any) { calls = append(calls, "first") })
	h.AddEventListener("custom", func(any) { panic("boom") })
	h.AddEventListener("custom", func(any) { calls = append(calls, "third") })

	assert.NotPanics(t, func() { h.Emit("custom", nil) })
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestHub_RemoveEventListener(t *testing.T) {
	h := hub.New()
	count := 0
	id := h.AddEventListener("tick", func(any) { count++ })

	h.Emit("tick", nil)
	assert.True(t, h.RemoveEventListener("tick", id))
	assert.False(t, h.RemoveEventListener("tick", id))
	h.Emit("tick", nil)

	assert.Equal(t, 1, count)
	assert.Zero(t, h.ListenerCount("tick"))
}

func TestHub_ConcurrentResumes(t *testing.T) {
	h := hub.New()
	const n = 50

	pending := make([]*hub.Pending, n)
	for i := range pending {
		pending[i] = h.RequestPause(hub.PauseRequest{})
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			h.Resume(id, id)
		}(p.ID())
	}
	wg.Wait()

	for _, p := range pending {
		got, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, p.ID(), got)
	}
	assert.Empty(t, h.ActivePauses())
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, hub.Default(), hub.Default())
}
