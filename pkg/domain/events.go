package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle hook event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
)

// HookEvent is passed to lifecycle hooks around every node.
type HookEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	Type           EventType     `json:"type"`
	FlowInstanceID string        `json:"flowInstanceId"`
	Depth          int           `json:"depth"`
	Node           Descriptor    `json:"node"`
	Output         *StepOutput   `json:"output,omitempty"`
	Err            error         `json:"-"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *HookEvent)
	OnNodeLeave func(context.Context, *HookEvent)
}

// StartEvent is published on flowManagerStart.
type StartEvent struct {
	FlowInstanceID string         `json:"flowInstanceId"`
	Input          any            `json:"input,omitempty"`
	State          map[string]any `json:"state"`
}

// StepEvent is published on flowManagerStep after each recorded step.
type StepEvent struct {
	FlowInstanceID string         `json:"flowInstanceId"`
	Depth          int            `json:"depth"`
	Index          int            `json:"index"`
	Step           ExecutionStep  `json:"step"`
	State          map[string]any `json:"state"`
}

// EndEvent is published on flowManagerEnd, whether the run succeeded or not.
type EndEvent struct {
	FlowInstanceID string          `json:"flowInstanceId"`
	Steps          []ExecutionStep `json:"steps"`
	State          map[string]any  `json:"state"`
	Err            error           `json:"-"`
}

// NodeEvent is a custom event raised by a node through FlowContext.Emit.
type NodeEvent struct {
	FlowInstanceID string     `json:"flowInstanceId"`
	EventName      string     `json:"eventName"`
	Data           any        `json:"data,omitempty"`
	Node           Descriptor `json:"node"`
}
