// Package hub implements the pause/resume table and the synchronous event bus
// shared by all flow runs of a process.
//
// A Hub is an explicit service: construct one with New and inject it into every
// engine that should see the same pauses and events. Default returns a
// process-wide instance for callers that do not care.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/flowmanager/internal/logging"
	"github.com/google/uuid"
)

// ErrPauseCancelled is returned by Pending.Wait when the pause was cancelled
// instead of resumed.
var ErrPauseCancelled = errors.New("pause cancelled")

// Listener receives event payloads. Listeners run synchronously on the
// emitting goroutine and must not block.
type Listener func(data any)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

type outcome struct {
	data any
	err  error
}

type pauseRecord struct {
	info   PauseInfo
	settle chan outcome
}

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Hub holds the active pause table and the event listener registry.
type Hub struct {
	mu     sync.Mutex
	pauses map[string]*pauseRecord

	lmu       sync.RWMutex
	listeners map[string][]listenerEntry
	nextID    ListenerID

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used for listener failures and id collisions.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the time source used for RequestedAt.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithIDGenerator overrides pause id minting.
func WithIDGenerator(gen func() string) Option {
	return func(h *Hub) {
		if gen != nil {
			h.newID = gen
		}
	}
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		pauses:    make(map[string]*pauseRecord),
		listeners: make(map[string][]listenerEntry),
		logger:    logging.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var (
	defaultOnce sync.Once
	defaultHub  *Hub
)

// Default returns the process-wide Hub.
func Default() *Hub {
	defaultOnce.Do(func() {
		defaultHub = New()
	})
	return defaultHub
}

// Pending is a registered pause awaiting Resume or Cancel.
type Pending struct {
	id     string
	settle chan outcome
}

// ID returns the effective pause id, which differs from the requested one
// when the hub had to mint a fresh id.
func (p *Pending) ID() string { return p.id }

// Wait blocks until the pause is resumed, cancelled, or ctx is done.
// When ctx ends first the pause stays registered and can still be resumed.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case out := <-p.settle:
		return out.data, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestPause registers a pause and emits EventPaused.
// An empty or already active id is replaced by a freshly minted one.
func (h *Hub) RequestPause(req PauseRequest) *Pending {
	h.mu.Lock()
	id := req.PauseID
	if id == "" {
		id = h.newID()
	} else if _, taken := h.pauses[id]; taken {
		minted := h.newID()
		h.logger.Debug("pause id already active, minted a new one", "requested", id, "pause_id", minted)
		id = minted
	}
	for {
		if _, taken := h.pauses[id]; !taken {
			break
		}
		id = uuid.NewString()
	}

	rec := &pauseRecord{
		info: PauseInfo{
			PauseID:        id,
			Details:        req.Details,
			FlowInstanceID: req.FlowInstanceID,
			RequestedAt:    h.now(),
		},
		settle: make(chan outcome, 1),
	}
	h.pauses[id] = rec
	h.mu.Unlock()

	h.Emit(EventPaused, PausedEvent{PauseInfo: rec.info})
	return &Pending{id: id, settle: rec.settle}
}

// Resume settles the pause with data. It returns false, and emits
// EventResumeFailed, when no pause with that id is active.
func (h *Hub) Resume(pauseID string, data any) bool {
	rec := h.take(pauseID)
	if rec == nil {
		h.Emit(EventResumeFailed, ResumeFailedEvent{
			PauseID: pauseID,
			Reason:  fmt.Sprintf("no active pause with id %q", pauseID),
		})
		return false
	}

	rec.settle <- outcome{data: data}
	h.Emit(EventResumed, ResumedEvent{
		PauseID:        pauseID,
		FlowInstanceID: rec.info.FlowInstanceID,
		ResumeData:     data,
	})
	return true
}

// Cancel settles the pause with ErrPauseCancelled.
func (h *Hub) Cancel(pauseID, reason string) bool {
	rec := h.take(pauseID)
	if rec == nil {
		return false
	}

	err := ErrPauseCancelled
	if reason != "" {
		err = fmt.Errorf("%w: %s", ErrPauseCancelled, reason)
	}
	rec.settle <- outcome{err: err}
	h.Emit(EventPauseCancelled, CancelledEvent{
		PauseID:        pauseID,
		FlowInstanceID: rec.info.FlowInstanceID,
		Reason:         reason,
	})
	return true
}

func (h *Hub) take(pauseID string) *pauseRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.pauses[pauseID]
	if !ok {
		return nil
	}
	delete(h.pauses, pauseID)
	return rec
}

// IsPaused reports whether pauseID is active.
func (h *Hub) IsPaused(pauseID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.pauses[pauseID]
	return ok
}

// Pause returns the active pause with the given id.
func (h *Hub) Pause(pauseID string) (PauseInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.pauses[pauseID]
	if !ok {
		return PauseInfo{}, false
	}
	return rec.info, true
}

// ActivePauses lists outstanding pauses, oldest first.
func (h *Hub) ActivePauses() []PauseInfo {
	h.mu.Lock()
	out := make([]PauseInfo, 0, len(h.pauses))
	for _, rec := range h.pauses {
		out = append(out, rec.info)
	}
	h.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].PauseID < out[j].PauseID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// AddEventListener registers fn for the named event.
func (h *Hub) AddEventListener(name string, fn Listener) ListenerID {
	h.lmu.Lock()
	defer h.lmu.Unlock()
	h.nextID++
	h.listeners[name] = append(h.listeners[name], listenerEntry{id: h.nextID, fn: fn})
	return h.nextID
}

// RemoveEventListener unregisters a listener. It returns false when id is unknown.
func (h *Hub) RemoveEventListener(name string, id ListenerID) bool {
	h.lmu.Lock()
	defer h.lmu.Unlock()
	entries := h.listeners[name]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		next := make([]listenerEntry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(h.listeners, name)
		} else {
			h.listeners[name] = next
		}
		return true
	}
	return false
}

// ListenerCount returns how many listeners are registered for name.
func (h *Hub) ListenerCount(name string) int {
	h.lmu.RLock()
	defer h.lmu.RUnlock()
	return len(h.listeners[name])
}

// Emit delivers data to every listener of name, in registration order.
// A panicking listener is logged and does not affect the others.
func (h *Hub) Emit(name string, data any) {
	h.lmu.RLock()
	entries := h.listeners[name]
	h.lmu.RUnlock()

	for _, e := range entries {
		h.deliver(name, e, data)
	}
}

func (h *Hub) deliver(name string, e listenerEntry, data any) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event listener panicked", "event", name, "listener", uint64(e.id), "panic", r)
		}
	}()
	e.fn(data)
}
