package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/flowmanager/internal/logging"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the pauses of a hub, and optionally stored runs and metrics, over HTTP.
type Server struct {
	Hub       *hub.Hub
	Snapshots ports.SnapshotStore
	Streams   *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSnapshots enables the /runs routes.
func WithSnapshots(store ports.SnapshotStore) Option {
	return func(s *Server) {
		s.Snapshots = store
	}
}

// WithMetrics serves the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server bound to h and subscribes its event stream.
// Call Close to unsubscribe.
func NewServer(h *hub.Hub, opts ...Option) *Server {
	s := &Server{
		Hub:    h,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.Streams.Attach(h)
	return s
}

// Close detaches the event stream from the hub.
func (s *Server) Close() {
	s.Streams.Detach()
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/pauses", func(r chi.Router) {
		r.Get("/", s.ListPauses)
		r.Get("/{pauseID}", s.GetPause)
		r.Post("/{pauseID}/resume", s.ResumePause)
		r.Delete("/{pauseID}", s.CancelPause)
	})

	if s.Snapshots != nil {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.ListRuns)
			r.Get("/{runID}", s.GetRun)
			r.Delete("/{runID}", s.DeleteRun)
		})
	}

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

// NewHandler is a shortcut for NewServer(h, opts...).Handler().
func NewHandler(h *hub.Hub, opts ...Option) http.Handler {
	return NewServer(h, opts...).Handler()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListPauses handles GET /pauses.
func (s *Server) ListPauses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Hub.ActivePauses())
}

// GetPause handles GET /pauses/{pauseID}.
func (s *Server) GetPause(w http.ResponseWriter, r *http.Request) {
	info, ok := s.Hub.Pause(chi.URLParam(r, "pauseID"))
	if !ok {
		http.Error(w, "pause not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// ResumePause handles POST /pauses/{pauseID}/resume. The JSON body, whatever
// its type, is the resume data; an empty body resumes with nil.
func (s *Server) ResumePause(w http.ResponseWriter, r *http.Request) {
	var data any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("ResumePause: invalid request body", "err", err)
		return
	}

	id := chi.URLParam(r, "pauseID")
	if !s.Hub.Resume(id, data) {
		http.Error(w, "pause not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelPause handles DELETE /pauses/{pauseID}?reason=...
func (s *Server) CancelPause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pauseID")
	if !s.Hub.Cancel(id, r.URL.Query().Get("reason")) {
		http.Error(w, "pause not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Snapshots.List(r.Context())
	if err != nil {
		s.fail(w, "ListRuns", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshots.Load(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, "GetRun", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteRun handles DELETE /runs/{runID}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Snapshots.Delete(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.fail(w, "DeleteRun", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	http.Error(w, "internal error", http.StatusInternalServerError)
	s.logger.Error(op+" failed", "err", err)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
