package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/internal/logging"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/placeholder"
	"github.com/aretw0/flowmanager/pkg/state"
)

// Engine evaluates a node list sequentially against its own state manager.
// Structural nodes (branches, subflows, loops) run as child engines seeded
// with a copy of this engine's state.
type Engine struct {
	nodes    []any
	compiled []domain.Node

	scope  compiler.Scope
	hub    *hub.Hub
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	state        *state.Manager
	initialState map[string]any
	input        any
	hasInput     bool
	instanceID   string
	depth        int

	steps  []domain.ExecutionStep
	cursor int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithScope sets the table string nodes and parameterized calls resolve against.
func WithScope(scope compiler.Scope) EngineOption {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithHub sets the hub used for pauses and notifications.
func WithHub(h *hub.Hub) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.hub = h
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers callbacks fired around every node.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithInitialState seeds the state manager.
func WithInitialState(initial map[string]any) EngineOption {
	return func(e *Engine) {
		e.initialState = initial
	}
}

// WithInput sets the input the first node receives.
func WithInput(input any) EngineOption {
	return func(e *Engine) {
		e.input = input
		e.hasInput = true
	}
}

// WithFlowInstanceID sets the run identity used on pauses and events.
func WithFlowInstanceID(id string) EngineOption {
	return func(e *Engine) {
		e.instanceID = id
	}
}

// NewEngine compiles nodes and builds the state manager.
func NewEngine(nodes []any, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		nodes:  append([]any(nil), nodes...),
		hub:    hub.Default(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.instanceID == "" {
		e.instanceID = uuid.NewString()
	}

	st, err := state.NewManager(e.initialState)
	if err != nil {
		return nil, err
	}
	e.state = st
	e.compiled = compiler.New(e.scope).CompileAll(e.nodes)
	return e, nil
}

// spawn builds a child engine for a structural node.
func (e *Engine) spawn(nodes []any, input any) (*Engine, error) {
	st, err := state.NewManager(e.state.GetState())
	if err != nil {
		return nil, fmt.Errorf("seed child state: %w", err)
	}
	return &Engine{
		nodes:      nodes,
		compiled:   compiler.New(e.scope).CompileAll(nodes),
		scope:      e.scope,
		hub:        e.hub,
		logger:     e.logger,
		hooks:      e.hooks,
		state:      st,
		input:      input,
		hasInput:   true,
		instanceID: e.instanceID,
		depth:      e.depth + 1,
	}, nil
}

// Run executes every node in order and returns a copy of the recorded steps.
// The first error returned by a node aborts the run and is returned as is;
// steps recorded before it stay available through Steps.
func (e *Engine) Run(ctx context.Context) ([]domain.ExecutionStep, error) {
	e.steps = nil
	e.cursor = 0

	if e.depth == 0 {
		e.hub.Emit(hub.EventStart, domain.StartEvent{
			FlowInstanceID: e.instanceID,
			Input:          state.CloneLoose(e.input),
			State:          e.state.GetState(),
		})
		e.logger.Debug("flow started", "flow_instance_id", e.instanceID, "nodes", len(e.compiled))
	}

	err := e.loop(ctx)

	if e.depth == 0 {
		e.hub.Emit(hub.EventEnd, domain.EndEvent{
			FlowInstanceID: e.instanceID,
			Steps:          domain.CloneSteps(e.steps),
			State:          e.state.GetState(),
			Err:            err,
		})
		if err != nil {
			e.logger.Error("flow failed", "flow_instance_id", e.instanceID, "step", e.cursor, "error", err)
		} else {
			e.logger.Debug("flow finished", "flow_instance_id", e.instanceID, "steps", len(e.steps))
		}
	}

	if err != nil {
		return nil, err
	}
	return domain.CloneSteps(e.steps), nil
}

func (e *Engine) loop(ctx context.Context) error {
	for ; e.cursor < len(e.compiled); e.cursor++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		step, err := e.execute(ctx, e.compiled[e.cursor], e.currentInput())
		if err != nil {
			return err
		}
		e.steps = append(e.steps, step)

		e.hub.Emit(hub.EventStep, domain.StepEvent{
			FlowInstanceID: e.instanceID,
			Depth:          e.depth,
			Index:          len(e.steps) - 1,
			Step:           step.Clone(),
			State:          e.state.GetState(),
		})
	}
	return nil
}

// currentInput derives the input of the node at the cursor.
func (e *Engine) currentInput() any {
	if len(e.steps) == 0 {
		if e.hasInput {
			return e.input
		}
		return nil
	}
	return e.steps[len(e.steps)-1].Output.Input()
}

func (e *Engine) previousEdges() []string {
	if len(e.steps) == 0 {
		return nil
	}
	return e.steps[len(e.steps)-1].Output.Edges
}

func (e *Engine) execute(ctx context.Context, node domain.Node, input any) (domain.ExecutionStep, error) {
	started := time.Now()
	e.fireHook(ctx, e.hooks.OnNodeEnter, &domain.HookEvent{
		Timestamp:      started,
		Type:           domain.EventNodeEnter,
		FlowInstanceID: e.instanceID,
		Depth:          e.depth,
		Node:           node.Info,
	})

	out, sub, err := e.dispatch(ctx, node, input)
	out = out.Normalize()

	leave := &domain.HookEvent{
		Timestamp:      time.Now(),
		Type:           domain.EventNodeLeave,
		FlowInstanceID: e.instanceID,
		Depth:          e.depth,
		Node:           node.Info,
		Err:            err,
		Duration:       time.Since(started),
	}
	if err == nil {
		leave.Output = &out
	}
	e.fireHook(ctx, e.hooks.OnNodeLeave, leave)

	if err != nil {
		return domain.ExecutionStep{}, err
	}
	return domain.ExecutionStep{Node: node.Info, Output: out, SubSteps: sub}, nil
}

func (e *Engine) dispatch(ctx context.Context, node domain.Node, input any) (domain.StepOutput, []domain.ExecutionStep, error) {
	switch node.Kind {
	case domain.KindCallable, domain.KindReference, domain.KindCall:
		if node.Err != nil {
			e.logger.Warn("node cannot run", "kind", node.Kind, "node", node.Info.Label, "error", node.Err)
			return domain.ErrorOutput(node.Err), nil, nil
		}
		var params map[string]any
		if node.Kind == domain.KindCall {
			params = placeholder.Params(node.Params, e.state)
		}
		fc := &flowContext{engine: e, self: node.Info, input: input}
		result, err := node.Func(ctx, fc, params)
		if err != nil {
			return domain.StepOutput{}, nil, err
		}
		return normalize(ctx, result), nil, nil

	case domain.KindEmpty:
		return domain.Pass(), nil, nil

	case domain.KindBranch:
		return e.runBranch(ctx, node, input)

	case domain.KindSubflow:
		return e.runChild(ctx, node.Children, input)

	case domain.KindLoop:
		return e.runLoop(ctx, node, input)
	}

	err := node.Err
	if err == nil {
		err = &domain.ValidationError{Kind: node.Kind, Err: domain.ErrInvalidNode}
	}
	e.logger.Warn("unsupported node", "node", node.Info.Label, "error", err)
	return domain.ErrorOutput(err, domain.EdgeError, domain.EdgePass), nil, nil
}

func (e *Engine) fireHook(ctx context.Context, hook func(context.Context, *domain.HookEvent), ev *domain.HookEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

// Steps returns a copy of the steps recorded by the last Run.
func (e *Engine) Steps() []domain.ExecutionStep {
	return domain.CloneSteps(e.steps)
}

// State returns the engine's state manager.
func (e *Engine) State() *state.Manager {
	return e.state
}

// Nodes returns the raw node list.
func (e *Engine) Nodes() []any {
	return append([]any(nil), e.nodes...)
}

// Compiled returns the classified nodes.
func (e *Engine) Compiled() []domain.Node {
	return append([]domain.Node(nil), e.compiled...)
}

// FlowInstanceID returns the run identity.
func (e *Engine) FlowInstanceID() string {
	return e.instanceID
}

// Hub returns the hub the engine publishes to.
func (e *Engine) Hub() *hub.Hub {
	return e.hub
}

// LastOutput returns the output of the last recorded step, or a pass output.
func (e *Engine) LastOutput() domain.StepOutput {
	if len(e.steps) == 0 {
		return domain.Pass()
	}
	return e.steps[len(e.steps)-1].Output.Clone()
}
