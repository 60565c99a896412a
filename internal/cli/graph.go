package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/internal/presentation/graph"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/ports"
)

// Graph prints a Mermaid diagram of a flow file. When store and runID are set,
// the run's progress is drawn over it.
func Graph(ctx context.Context, path string, store ports.SnapshotStore, runID string, out io.Writer) error {
	def, err := compiler.LoadFile(path)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if store != nil && runID != "" {
		snap, err := store.Load(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", runID, err)
		}
		overlay = overlayOf(snap)
	}

	_, err = io.WriteString(out, graph.GenerateMermaid(def.Nodes, Builtins(io.Discard), overlay))
	return err
}

func overlayOf(snap *domain.Snapshot) *graph.GraphOverlay {
	overlay := &graph.GraphOverlay{Current: -1}
	for i := range snap.Steps {
		overlay.Visited = append(overlay.Visited, i)
	}
	// Unfinished and failed runs stop at the node after the last recorded step.
	if snap.Status != domain.StatusCompleted {
		overlay.Current = len(snap.Steps)
	}
	return overlay
}

// OpenSnapshots opens the store configured for graph and inspection commands.
func OpenSnapshots(ctx context.Context, cfg Config) (ports.SnapshotStore, func(), error) {
	store, _, closer, err := openStore(ctx, cfg)
	return store, closer, err
}
