package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parking_explorer"

// Metrics holds the Prometheus counters, histograms, and gauges for the explorer service.
type Metrics struct {
	TicketsLoaded  prometheus.Gauge
	TicketsDropped *prometheus.CounterVec // labels: reason
	SessionsActive prometheus.Gauge

	// Interaction metrics.
	EventsApplied *prometheus.CounterVec // labels: type
	EventsInvalid *prometheus.CounterVec // labels: type

	// Dashboard computation metrics.
	DashboardDuration prometheus.Histogram
	DashboardCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Interaction publishing metrics.
	InteractionsPublished prometheus.Counter
	InteractionsDropped   prometheus.Counter
	PublishErrors         prometheus.Counter
	PublishBatchSize      prometheus.Histogram
	PublisherRunning      prometheus.Gauge
}

// NewMetrics creates and registers all explorer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TicketsLoaded,
		m.TicketsDropped,
		m.SessionsActive,
		m.EventsApplied,
		m.EventsInvalid,
		m.DashboardDuration,
		m.DashboardCache,
		m.InteractionsPublished,
		m.InteractionsDropped,
		m.PublishErrors,
		m.PublishBatchSize,
		m.PublisherRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TicketsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tickets_loaded",
			Help:      "Tickets in the loaded table.",
		}),
		TicketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_dropped_total",
			Help:      "CSV rows skipped at load time by reason.",
		}, []string{"reason"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dashboard sessions currently held in memory.",
		}),
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Interaction events applied to a session by type.",
		}, []string{"type"}),
		EventsInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_invalid_total",
			Help:      "Interaction events rejected by the reducer by type.",
		}, []string{"type"}),
		DashboardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_compute_duration_seconds",
			Help:      "Duration of a full dashboard recomputation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		DashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_total",
			Help:      "Dashboard memo lookups by result.",
		}, []string{"result"}),
		InteractionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_published_total",
			Help:      "Interaction records written to the sink topic.",
		}),
		InteractionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_dropped_total",
			Help:      "Interaction records discarded because the publish queue was full.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed interaction batch writes.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Number of interaction records per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_running",
			Help:      "1 when the interaction publisher is active, 0 when shut down.",
		}),
	}
}
