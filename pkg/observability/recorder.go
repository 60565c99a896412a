package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/flowmanager/internal/logging"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/session"
)

const defaultSaveTimeout = 5 * time.Second

// Recorder persists snapshots of the runs published on a hub.
type Recorder struct {
	sessions *session.Manager
	logger   *slog.Logger
	timeout  time.Duration
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger used to report failed saves.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithSaveTimeout bounds every store round trip.
func WithSaveTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.timeout = d
	}
}

// NewRecorder creates a recorder writing through sessions.
func NewRecorder(sessions *session.Manager, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sessions: sessions,
		logger:   logging.NewNop(),
		timeout:  defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes the recorder to h. The returned func unsubscribes it.
func (r *Recorder) Attach(h *hub.Hub) func() {
	ids := map[string]hub.ListenerID{
		hub.EventStart:          h.AddEventListener(hub.EventStart, r.onStart),
		hub.EventStep:           h.AddEventListener(hub.EventStep, r.onStep),
		hub.EventEnd:            h.AddEventListener(hub.EventEnd, r.onEnd),
		hub.EventPaused:         h.AddEventListener(hub.EventPaused, r.onPaused),
		hub.EventResumed:        h.AddEventListener(hub.EventResumed, r.onResumed),
		hub.EventPauseCancelled: h.AddEventListener(hub.EventPauseCancelled, r.onCancelled),
	}
	return func() {
		for name, id := range ids {
			h.RemoveEventListener(name, id)
		}
	}
}

func (r *Recorder) update(id string, fn func(*domain.Snapshot)) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.sessions.Update(ctx, id, fn); err != nil {
		r.logger.Warn("failed to record snapshot", "flow_instance_id", id, "err", err)
	}
}

func (r *Recorder) onStart(data any) {
	ev, ok := data.(domain.StartEvent)
	if !ok {
		return
	}
	r.update(ev.FlowInstanceID, func(s *domain.Snapshot) {
		s.Status = domain.StatusRunning
		s.Steps = []domain.ExecutionStep{}
		s.State = ev.State
		s.PauseID = ""
		s.Error = ""
	})
}

func (r *Recorder) onStep(data any) {
	ev, ok := data.(domain.StepEvent)
	if !ok || ev.Depth != 0 {
		return
	}
	r.update(ev.FlowInstanceID, func(s *domain.Snapshot) {
		s.Steps = append(s.Steps, ev.Step)
		s.State = ev.State
	})
}

func (r *Recorder) onEnd(data any) {
	ev, ok := data.(domain.EndEvent)
	if !ok {
		return
	}
	r.update(ev.FlowInstanceID, func(s *domain.Snapshot) {
		s.Steps = ev.Steps
		s.State = ev.State
		s.PauseID = ""
		if ev.Err != nil {
			s.Status = domain.StatusFailed
			s.Error = ev.Err.Error()
			return
		}
		s.Status = domain.StatusCompleted
	})
}

func (r *Recorder) onPaused(data any) {
	ev, ok := data.(hub.PausedEvent)
	if !ok {
		return
	}
	r.update(ev.FlowInstanceID, func(s *domain.Snapshot) {
		s.Status = domain.StatusPaused
		s.PauseID = ev.PauseID
	})
}

func (r *Recorder) onResumed(data any) {
	ev, ok := data.(hub.ResumedEvent)
	if !ok {
		return
	}
	r.update(ev.FlowInstanceID, resumed)
}

func (r *Recorder) onCancelled(data any) {
	ev, ok := data.(hub.CancelledEvent)
	if !ok {
		return
	}
	r.update(ev.FlowInstanceID, resumed)
}

func resumed(s *domain.Snapshot) {
	s.Status = domain.StatusRunning
	s.PauseID = ""
}
