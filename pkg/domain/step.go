package domain

import "github.com/aretw0/flowmanager/pkg/state"

// StepOutput is the normalized result of one node.
// Edges is never empty once normalized; a nil Results means "no result".
type StepOutput struct {
	Edges        []string `json:"edges"`
	Results      []any    `json:"results,omitempty"`
	ErrorDetails string   `json:"errorDetails,omitempty"`
}

// Pass returns the default pass-through output.
func Pass() StepOutput {
	return StepOutput{Edges: []string{EdgePass}}
}

// ErrorOutput builds an output for a node that could not run.
func ErrorOutput(err error, edges ...string) StepOutput {
	if len(edges) == 0 {
		edges = []string{EdgeError}
	}
	return StepOutput{Edges: edges, ErrorDetails: err.Error()}
}

// Normalize fills in the default edge.
func (o StepOutput) Normalize() StepOutput {
	if len(o.Edges) == 0 {
		o.Edges = []string{EdgePass}
	}
	return o
}

// HasEdge reports whether name is among the output edges.
func (o StepOutput) HasEdge(name string) bool {
	for _, e := range o.Edges {
		if e == name {
			return true
		}
	}
	return false
}

// Input derives the value the next node receives: the single result, all
// results when there are several, or nil.
func (o StepOutput) Input() any {
	switch len(o.Results) {
	case 0:
		return nil
	case 1:
		return o.Results[0]
	default:
		return append([]any(nil), o.Results...)
	}
}

// Clone returns a deep copy. Results that are not plain trees are kept by reference.
func (o StepOutput) Clone() StepOutput {
	out := StepOutput{ErrorDetails: o.ErrorDetails}
	if o.Edges != nil {
		out.Edges = append([]string(nil), o.Edges...)
	}
	if o.Results != nil {
		out.Results = make([]any, len(o.Results))
		for i, r := range o.Results {
			out.Results[i] = state.CloneLoose(r)
		}
	}
	return out
}

// ExecutionStep records one executed node. Structural nodes carry the steps
// of their child runs in SubSteps.
type ExecutionStep struct {
	Node     Descriptor      `json:"node"`
	Output   StepOutput      `json:"output"`
	SubSteps []ExecutionStep `json:"subSteps,omitempty"`
}

// Clone returns a deep copy of the step and its sub-steps.
func (s ExecutionStep) Clone() ExecutionStep {
	return ExecutionStep{
		Node:     s.Node,
		Output:   s.Output.Clone(),
		SubSteps: CloneSteps(s.SubSteps),
	}
}

// CloneSteps deep-copies a step list. A nil list stays nil.
func CloneSteps(steps []ExecutionStep) []ExecutionStep {
	if steps == nil {
		return nil
	}
	out := make([]ExecutionStep, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
