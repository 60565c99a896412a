package observability

import (
	"context"

	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "flowmanager"

// Metrics holds the Prometheus collectors of the engine.
//
// Exposed series (namespaced, "flowmanager_" by default):
//
//	runs_started_total            counter
//	runs_finished_total{status}   counter, status is completed or failed
//	steps_total                   counter, top-level steps only
//	node_duration_seconds{kind,outcome} histogram, outcome is ok or error
//	nodes_inflight                gauge
//	pauses_active                 gauge
//	pause_outcomes_total{outcome} counter, outcome is resumed, failed or cancelled
type Metrics struct {
	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	steps         prometheus.Counter
	nodeDuration  *prometheus.HistogramVec
	inflight      prometheus.Gauge
	activePauses  prometheus.Gauge
	pauseOutcomes *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg means the default registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Top-level flow runs started",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Top-level flow runs finished, by status",
		}, []string{"status"}),
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Steps recorded by top-level runs",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Node execution duration, nested nodes included",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind", "outcome"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_inflight",
			Help:      "Nodes currently executing",
		}),
		activePauses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pauses_active",
			Help:      "Pauses waiting for resume data",
		}),
		pauseOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pause_outcomes_total",
			Help:      "Resume attempts and cancellations, by outcome",
		}, []string{"outcome"}),
	}
}

// Hooks returns lifecycle hooks feeding the node metrics.
// Compose them with other hooks via ChainHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.HookEvent) {
			m.inflight.Inc()
		},
		OnNodeLeave: func(_ context.Context, ev *domain.HookEvent) {
			m.inflight.Dec()
			outcome := "ok"
			if ev.Err != nil {
				outcome = "error"
			}
			m.nodeDuration.WithLabelValues(string(ev.Node.Kind), outcome).Observe(ev.Duration.Seconds())
		},
	}
}

// Attach subscribes the run and pause metrics to h. The returned func unsubscribes them.
func (m *Metrics) Attach(h *hub.Hub) func() {
	ids := map[string]hub.ListenerID{
		hub.EventStart: h.AddEventListener(hub.EventStart, func(any) {
			m.runsStarted.Inc()
		}),
		hub.EventStep: h.AddEventListener(hub.EventStep, func(data any) {
			if ev, ok := data.(domain.StepEvent); ok && ev.Depth == 0 {
				m.steps.Inc()
			}
		}),
		hub.EventEnd: h.AddEventListener(hub.EventEnd, func(data any) {
			status := domain.StatusCompleted
			if ev, ok := data.(domain.EndEvent); ok && ev.Err != nil {
				status = domain.StatusFailed
			}
			m.runsFinished.WithLabelValues(string(status)).Inc()
		}),
		hub.EventPaused: h.AddEventListener(hub.EventPaused, func(any) {
			m.activePauses.Inc()
		}),
		hub.EventResumed: h.AddEventListener(hub.EventResumed, func(any) {
			m.activePauses.Dec()
			m.pauseOutcomes.WithLabelValues("resumed").Inc()
		}),
		hub.EventResumeFailed: h.AddEventListener(hub.EventResumeFailed, func(any) {
			m.pauseOutcomes.WithLabelValues("failed").Inc()
		}),
		hub.EventPauseCancelled: h.AddEventListener(hub.EventPauseCancelled, func(any) {
			m.activePauses.Dec()
			m.pauseOutcomes.WithLabelValues("cancelled").Inc()
		}),
	}
	return func() {
		for name, id := range ids {
			h.RemoveEventListener(name, id)
		}
	}
}

// ChainHooks runs every hook set in order.
func ChainHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, ev *domain.HookEvent) {
			for _, s := range sets {
				if s.OnNodeEnter != nil {
					s.OnNodeEnter(ctx, ev)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, ev *domain.HookEvent) {
			for _, s := range sets {
				if s.OnNodeLeave != nil {
					s.OnNodeLeave(ctx, ev)
				}
			}
		},
	}
}
