package ports

import (
	"context"

	"github.com/aretw0/flowmanager/pkg/domain"
)

// SnapshotStore persists run snapshots so steps stay inspectable after a
// failure, a pause or a process restart.
type SnapshotStore interface {
	// Save persists the snapshot under its FlowInstanceID.
	Save(ctx context.Context, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot of a run.
	// Returns domain.ErrSnapshotNotFound if the run does not exist.
	Load(ctx context.Context, flowInstanceID string) (*domain.Snapshot, error)

	// Delete removes the snapshot of a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, flowInstanceID string) error

	// List returns the ids of every stored run.
	List(ctx context.Context) ([]string, error)
}
