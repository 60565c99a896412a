package runtime

import (
	"context"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
)

// flowContext is the FlowContext handed to one node invocation.
type flowContext struct {
	engine *Engine
	self   domain.Descriptor
	input  any
}

var _ domain.FlowContext = (*flowContext)(nil)

func (c *flowContext) State() *domain.State { return c.engine.state }

func (c *flowContext) Steps() []domain.ExecutionStep { return c.engine.Steps() }

func (c *flowContext) Nodes() []any { return c.engine.Nodes() }

func (c *flowContext) Self() domain.Descriptor { return c.self }

func (c *flowContext) Input() any { return c.input }

func (c *flowContext) FlowInstanceID() string { return c.engine.instanceID }

// HumanInput registers a pause on the engine's hub and waits for it.
func (c *flowContext) HumanInput(ctx context.Context, pauseID string, details any) (any, error) {
	pending := c.engine.hub.RequestPause(hub.PauseRequest{
		PauseID:        pauseID,
		Details:        details,
		FlowInstanceID: c.engine.instanceID,
	})
	c.engine.logger.Info("waiting for input", "pause_id", pending.ID(), "flow_instance_id", c.engine.instanceID, "node", c.self.Label)
	return pending.Wait(ctx)
}

func (c *flowContext) Emit(name string, data any) {
	c.engine.hub.Emit(hub.EventNodeEvent, domain.NodeEvent{
		FlowInstanceID: c.engine.instanceID,
		EventName:      name,
		Data:           data,
		Node:           c.self,
	})
}

func (c *flowContext) On(name string, fn func(domain.NodeEvent)) func() {
	h := c.engine.hub
	id := h.AddEventListener(hub.EventNodeEvent, func(data any) {
		ev, ok := data.(domain.NodeEvent)
		if ok && ev.EventName == name {
			fn(ev)
		}
	})
	return func() {
		h.RemoveEventListener(hub.EventNodeEvent, id)
	}
}
