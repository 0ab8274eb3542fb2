package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what controllers do. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	persists      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	reanalyze     prometheus.Counter
	skipped       prometheus.Counter
	excluded      prometheus.Counter
	storeFailures prometheus.Counter
	eventDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to avoid the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagsync_build_events_total",
			Help: "Build events processed, by outcome",
		}, []string{"outcome"}),
		persists: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagsync_cell_persists_total",
			Help: "Cell batches persisted, by state kind and origin",
		}, []string{"kind", "origin"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagsync_notifications_total",
			Help: "Diagnostics-changed notifications published, by state kind",
		}, []string{"kind"}),
		reanalyze: f.NewCounter(prometheus.CounterOpts{
			Name: "diagsync_reanalyze_requests_total",
			Help: "Live re-analysis requests sent for open documents",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "diagsync_skipped_artifacts_total",
			Help: "Build event entries skipped because the artifact is not in the workspace",
		}),
		excluded: f.NewCounter(prometheus.CounterOpts{
			Name: "diagsync_excluded_diagnostics_total",
			Help: "Build diagnostics dropped because no descriptor declares their id",
		}),
		storeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "diagsync_store_failures_total",
			Help: "Store reads or writes that failed a reconciliation",
		}),
		eventDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "diagsync_build_event_duration_seconds",
			Help:    "Time to reconcile one build event",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) event(outcome string) {
	if m != nil {
		m.events.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) persist(kind, origin string) {
	if m != nil {
		m.persists.WithLabelValues(kind, origin).Inc()
	}
}

func (m *Metrics) notify(kind string) {
	if m != nil {
		m.notifications.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) reanalyzed() {
	if m != nil {
		m.reanalyze.Inc()
	}
}

func (m *Metrics) skip() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) exclude(n int) {
	if m != nil && n > 0 {
		m.excluded.Add(float64(n))
	}
}

func (m *Metrics) storeFailure() {
	if m != nil {
		m.storeFailures.Inc()
	}
}

func (m *Metrics) timer() *prometheus.Timer {
	if m == nil {
		return nil
	}
	return prometheus.NewTimer(m.eventDuration)
}
