package domain

import "context"

// Kind classifies a workflow node.
type Kind string

const (
	KindCallable  Kind = "callable"
	KindReference Kind = "reference"
	KindCall      Kind = "call"
	KindBranch    Kind = "branch"
	KindSubflow   Kind = "subflow"
	KindLoop      Kind = "loop"
	KindEmpty     Kind = "empty"
	KindInvalid   Kind = "invalid"
)

// MaxLoopIterations caps how many times a loop controller runs.
const MaxLoopIterations = 100

// Well-known edge names.
const (
	EdgePass          = "pass"
	EdgeError         = "error"
	EdgeExit          = "exit"
	EdgeExitForced    = "exit_forced"
	EdgeContinue      = "continue"
	MaxIterationsName = "max iterations"
)

// NodeFunc is the contract every node implementation satisfies.
// params is nil unless the node was written as a parameterized call.
type NodeFunc func(ctx context.Context, fc FlowContext, params map[string]any) (any, error)

// EdgeFunc lazily computes the result attached to one edge of a node output.
type EdgeFunc func(ctx context.Context) (any, error)

// Edge pairs an edge name with the function producing its result.
type Edge struct {
	Name string
	Fn   EdgeFunc
}

// Edges is an ordered set of edge functions a node can return.
type Edges []Edge

// Branch is one arm of a branch map.
type Branch struct {
	Edge  string
	Nodes []any
}

// Node is the compiled form of a raw workflow definition.
type Node struct {
	Kind Kind
	Info Descriptor

	// Func is set for callables, resolved references and parameterized calls.
	Func NodeFunc
	// Params holds the raw (unresolved) argument object of a parameterized call.
	Params any
	// Branches holds the arms of a branch map in declared order.
	Branches []Branch
	// Children holds the node list of a subflow, or [controller, actions...] of a loop.
	Children []any
	// Err is set when the node cannot run (unresolved reference, invalid shape).
	Err error
}

// Descriptor is the introspection view of a node. It is never used for dispatch.
type Descriptor struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
}

// AsNodeFunc reports whether v is a node implementation, named or not.
func AsNodeFunc(v any) (NodeFunc, bool) {
	switch fn := v.(type) {
	case NodeFunc:
		return fn, fn != nil
	case func(context.Context, FlowContext, map[string]any) (any, error):
		return fn, fn != nil
	}
	return nil, false
}

// AsEdgeFunc reports whether v is an edge function, named or not.
func AsEdgeFunc(v any) (EdgeFunc, bool) {
	switch fn := v.(type) {
	case EdgeFunc:
		return fn, fn != nil
	case func(context.Context) (any, error):
		return fn, fn != nil
	}
	return nil, false
}
