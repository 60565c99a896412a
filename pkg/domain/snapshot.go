package domain

import "time"

// RunStatus is the coarse lifecycle of a persisted run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusPaused    RunStatus = "paused"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Snapshot is the persisted view of a top-level run.
type Snapshot struct {
	FlowInstanceID string          `json:"flowInstanceId"`
	Status         RunStatus       `json:"status"`
	Steps          []ExecutionStep `json:"steps"`
	State          map[string]any  `json:"state"`
	PauseID        string          `json:"pauseId,omitempty"`
	Error          string          `json:"error,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewSnapshot returns a running snapshot for id.
func NewSnapshot(id string) *Snapshot {
	return &Snapshot{
		FlowInstanceID: id,
		Status:         StatusRunning,
		Steps:          []ExecutionStep{},
		State:          map[string]any{},
		UpdatedAt:      time.Now(),
	}
}
