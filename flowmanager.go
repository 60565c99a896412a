package flowmanager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/internal/logging"
	"github.com/aretw0/flowmanager/internal/runtime"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/registry"
	"github.com/aretw0/flowmanager/pkg/state"
)

// Engine is the high-level entry point of the library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	scope       *registry.Registry
	hub         *hub.Hub
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithScope sets the registry string nodes resolve against.
func WithScope(scope *registry.Registry) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithHub injects the pause/event hub. Engines sharing a hub see each other's
// pauses and events. Defaults to hub.Default().
func WithHub(h *hub.Hub) Option {
	return func(e *Engine) {
		e.hub = h
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithInitialState seeds the run state.
func WithInitialState(initial map[string]any) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInitialState(initial))
	}
}

// WithInput sets the input of the first node.
func WithInput(input any) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInput(input))
	}
}

// WithFlowInstanceID fixes the run identity (default: a random UUID).
func WithFlowInstanceID(id string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithFlowInstanceID(id))
	}
}

// WithName labels the engine; the name is attached to every log line.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New builds an engine over a node list.
func New(nodes []any, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	// Engine-level log lines carry the flow name, so the logger is resolved here.
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("flow", eng.Name)
	}
	if eng.hub == nil {
		eng.hub = hub.Default()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithHub(eng.hub),
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}
	if eng.scope != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithScope(eng.scope))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	rt, err := runtime.NewEngine(nodes, runtimeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	eng.runtime = rt
	return eng, nil
}

// NewFromFile loads a YAML or JSON flow file. The file's "state" and "input"
// keys seed the run; options given here override them.
func NewFromFile(path string, opts ...Option) (*Engine, error) {
	def, err := compiler.LoadFile(path)
	if err != nil {
		return nil, err
	}

	name := def.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	base := []Option{WithName(name)}
	if def.State != nil {
		base = append(base, WithInitialState(def.State))
	}
	if def.Input != nil {
		base = append(base, WithInput(def.Input))
	}
	return New(def.Nodes, append(base, opts...)...)
}

// Run executes the flow and returns every recorded step.
func (e *Engine) Run(ctx context.Context) ([]domain.ExecutionStep, error) {
	return e.runtime.Run(ctx)
}

// Steps returns the steps recorded so far, including after a failed run.
func (e *Engine) Steps() []domain.ExecutionStep {
	return e.runtime.Steps()
}

// State returns the run's state manager.
func (e *Engine) State() *state.Manager {
	return e.runtime.State()
}

// FlowInstanceID returns the run identity.
func (e *Engine) FlowInstanceID() string {
	return e.runtime.FlowInstanceID()
}

// Hub returns the hub the engine publishes to.
func (e *Engine) Hub() *hub.Hub {
	return e.hub
}

// Inspect returns the classified node list for introspection tools.
func (e *Engine) Inspect() []domain.Node {
	return e.runtime.Compiled()
}
