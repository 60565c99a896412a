package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
)

// streamedEvents are forwarded from the hub to SSE clients.
var streamedEvents = []string{
	hub.EventStart,
	hub.EventStep,
	hub.EventEnd,
	hub.EventNodeEvent,
	hub.EventPaused,
	hub.EventResumed,
	hub.EventResumeFailed,
	hub.EventPauseCancelled,
}

// Message is one SSE frame.
type Message struct {
	Event string
	Data  string
}

// StreamManager fans hub events out to SSE connections.
// Subscribers keyed by "" receive every event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Message]struct{}
	logger      *slog.Logger

	hub      *hub.Hub
	listener map[string]hub.ListenerID
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Message]struct{}),
		logger:      logger,
	}
}

// Attach forwards the events of h to subscribers.
func (sm *StreamManager) Attach(h *hub.Hub) {
	sm.hub = h
	sm.listener = make(map[string]hub.ListenerID, len(streamedEvents))
	for _, name := range streamedEvents {
		name := name
		sm.listener[name] = h.AddEventListener(name, func(data any) {
			sm.publish(name, data)
		})
	}
}

// Detach stops forwarding hub events.
func (sm *StreamManager) Detach() {
	if sm.hub == nil {
		return
	}
	for name, id := range sm.listener {
		sm.hub.RemoveEventListener(name, id)
	}
	sm.hub = nil
}

// Subscribe registers a channel for one flow instance, or all when id is "".
func (sm *StreamManager) Subscribe(id string) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- Message]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

func (sm *StreamManager) publish(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		sm.logger.Warn("SSE: event is not serializable", "event", event, "err", err)
		return
	}
	msg := Message{Event: event, Data: string(payload)}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.broadcast("", msg)
	if id := instanceOf(data); id != "" {
		sm.broadcast(id, msg)
	}
}

func (sm *StreamManager) broadcast(id string, msg Message) {
	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "flow_instance_id", id, "event", msg.Event)
		}
	}
}

func instanceOf(data any) string {
	switch ev := data.(type) {
	case domain.StartEvent:
		return ev.FlowInstanceID
	case domain.StepEvent:
		return ev.FlowInstanceID
	case domain.EndEvent:
		return ev.FlowInstanceID
	case domain.NodeEvent:
		return ev.FlowInstanceID
	case hub.PausedEvent:
		return ev.FlowInstanceID
	case hub.ResumedEvent:
		return ev.FlowInstanceID
	case hub.CancelledEvent:
		return ev.FlowInstanceID
	}
	return ""
}

// SubscribeEvents handles GET /events?flow_instance_id=... as a Server-Sent Events stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.Streams.Subscribe(r.URL.Query().Get("flow_instance_id"))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
