package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(id string) *domain.Snapshot {
	snap := domain.NewSnapshot(id)
	snap.State = map[string]any{"foo": "bar", "count": 42}
	snap.Steps = []domain.ExecutionStep{{
		Node:   domain.Descriptor{Kind: domain.KindReference, Name: "greet"},
		Output: domain.StepOutput{Edges: []string{"pass"}, Results: []any{"hi"}},
	}}
	return snap
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := sampleSnapshot(runID)
		snap.Status = domain.StatusPaused
		snap.PauseID = "approve"

		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, runID, loaded.FlowInstanceID)
		assert.Equal(t, domain.StatusPaused, loaded.Status)
		assert.Equal(t, "approve", loaded.PauseID)
		assert.Equal(t, "bar", loaded.State["foo"])
		// JSON-backed stores turn ints into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.State["count"])
		require.Len(t, loaded.Steps, 1)
		assert.Equal(t, []string{"pass"}, loaded.Steps[0].Output.Edges)
		assert.Equal(t, "greet", loaded.Steps[0].Node.Name)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := sampleSnapshot(runID)
		snap.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleSnapshot(runID)))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
		assert.NoError(t, store.Delete(ctx, runID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, sampleSnapshot(id1)))
		require.NoError(t, store.Save(ctx, sampleSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
