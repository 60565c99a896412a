package hub

import "time"

// Event names published on a Hub.
const (
	EventStep      = "flowManagerStep"
	EventStart     = "flowManagerStart"
	EventEnd       = "flowManagerEnd"
	EventNodeEvent = "flowManagerNodeEvent"

	EventPaused         = "flowPaused"
	EventResumed        = "flowResumed"
	EventResumeFailed   = "resumeFailed"
	EventPauseCancelled = "flowPauseCancelled"
)

// PauseRequest describes a pause a flow wants to register.
// An empty PauseID asks the hub to mint one.
type PauseRequest struct {
	PauseID        string
	Details        any
	FlowInstanceID string
}

// PauseInfo is the public view of an outstanding pause.
type PauseInfo struct {
	PauseID        string    `json:"pauseId"`
	Details        any       `json:"details,omitempty"`
	FlowInstanceID string    `json:"flowInstanceId"`
	RequestedAt    time.Time `json:"requestedAt"`
}

// PausedEvent is the payload of EventPaused.
type PausedEvent struct {
	PauseInfo
}

// ResumedEvent is the payload of EventResumed.
type ResumedEvent struct {
	PauseID        string `json:"pauseId"`
	FlowInstanceID string `json:"flowInstanceId"`
	ResumeData     any    `json:"resumeData,omitempty"`
}

// ResumeFailedEvent is the payload of EventResumeFailed.
type ResumeFailedEvent struct {
	PauseID string `json:"pauseId"`
	Reason  string `json:"reason"`
}

// CancelledEvent is the payload of EventPauseCancelled.
type CancelledEvent struct {
	PauseID        string `json:"pauseId"`
	FlowInstanceID string `json:"flowInstanceId"`
	Reason         string `json:"reason,omitempty"`
}
