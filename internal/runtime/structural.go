package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/flowmanager/pkg/domain"
)

// runChild runs nodes in a child engine seeded with a copy of the current
// state. On success the child's final state replaces this engine's state and
// its last output becomes the structural node's output.
func (e *Engine) runChild(ctx context.Context, nodes []any, input any) (domain.StepOutput, []domain.ExecutionStep, error) {
	child, err := e.spawn(nodes, input)
	if err != nil {
		return domain.StepOutput{}, nil, err
	}

	steps, err := child.Run(ctx)
	if err != nil {
		return domain.StepOutput{}, nil, err
	}

	if err := e.state.Set("", child.state.GetState()); err != nil {
		return domain.StepOutput{}, nil, fmt.Errorf("merge child state: %w", err)
	}
	return child.LastOutput(), steps, nil
}

// runBranch executes the first arm, in declared order, whose edge appears
// among the previous step's edges. No match is a pass-through.
func (e *Engine) runBranch(ctx context.Context, node domain.Node, input any) (domain.StepOutput, []domain.ExecutionStep, error) {
	prev := e.previousEdges()
	for _, b := range node.Branches {
		if !contains(prev, b.Edge) {
			continue
		}
		e.logger.Debug("branch taken", "edge", b.Edge, "depth", e.depth)
		return e.runChild(ctx, b.Nodes, input)
	}
	return domain.Pass(), nil, nil
}

// runLoop repeats [controller, actions...] until the controller signals exit
// or domain.MaxLoopIterations is reached.
func (e *Engine) runLoop(ctx context.Context, node domain.Node, input any) (domain.StepOutput, []domain.ExecutionStep, error) {
	controller := node.Children[0]
	actions := node.Children[1:]

	var sub []domain.ExecutionStep
	var last domain.StepOutput
	iterInput := input

	for i := 0; i < domain.MaxLoopIterations; i++ {
		if err := ctx.Err(); err != nil {
			return domain.StepOutput{}, nil, err
		}

		ctrlOut, ctrlSteps, err := e.runChild(ctx, []any{controller}, iterInput)
		if err != nil {
			return domain.StepOutput{}, nil, err
		}
		sub = append(sub, ctrlSteps...)
		last = ctrlOut

		if ctrlOut.HasEdge(domain.EdgeExit) || ctrlOut.HasEdge(domain.EdgeExitForced) {
			return ctrlOut, sub, nil
		}

		next := ctrlOut.Input()
		if len(actions) > 0 {
			actOut, actSteps, err := e.runChild(ctx, actions, next)
			if err != nil {
				return domain.StepOutput{}, nil, err
			}
			sub = append(sub, actSteps...)
			last = actOut
			next = actOut.Input()
		}
		iterInput = next
	}

	e.logger.Warn("loop stopped at iteration cap", "max", domain.MaxLoopIterations, "flow_instance_id", e.instanceID)
	forced := domain.StepOutput{
		Edges:        []string{domain.EdgeExitForced},
		Results:      last.Clone().Results,
		ErrorDetails: fmt.Sprintf("loop reached %d iterations", domain.MaxLoopIterations),
	}
	sub = append(sub, domain.ExecutionStep{
		Node:   domain.Descriptor{Kind: domain.KindLoop, Name: domain.MaxIterationsName, Label: "loop"},
		Output: forced.Clone(),
	})
	return forced, sub, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
