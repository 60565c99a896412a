package domain

import (
	"context"

	"github.com/aretw0/flowmanager/pkg/state"
)

// FlowContext is what a node implementation sees while it runs.
// Self and Input are rebound for every node.
type FlowContext interface {
	// State is the run's state manager. Structural children get their own copy.
	State() *State
	// Steps returns a copy of the steps recorded so far in this evaluator.
	Steps() []ExecutionStep
	// Nodes returns the raw node list this evaluator runs.
	Nodes() []any
	// Self describes the node being executed.
	Self() Descriptor
	// Input is the value derived from the previous step.
	Input() any
	FlowInstanceID() string

	// HumanInput registers a pause and blocks until it is resumed or ctx ends.
	// An empty pauseID lets the hub mint one.
	HumanInput(ctx context.Context, pauseID string, details any) (any, error)
	// Emit publishes a custom node event to every listener of the same name.
	Emit(name string, data any)
	// On subscribes to custom node events. The returned func unsubscribes.
	On(name string, fn func(NodeEvent)) (unsubscribe func())
}

// State is the state manager type exposed to nodes.
type State = state.Manager
