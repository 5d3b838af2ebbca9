package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard intelligence pipeline.
type Metrics struct {
	// Scheduler metrics.
	SchedulerDispatches    *prometheus.CounterVec // labels: source, outcome={success,error}
	SchedulerCacheLookups  *prometheus.CounterVec // labels: source, result={hit,miss}
	SchedulerThrottleWaits *prometheus.CounterVec // labels: source
	SchedulerRetries       *prometheus.CounterVec // labels: source

	// Connector metrics.
	ItemsFetched    *prometheus.CounterVec // labels: source
	ConnectorErrors *prometheus.CounterVec // labels: source

	// Classification metrics.
	ItemsClassified     prometheus.Counter
	ClassifierFallbacks prometheus.Counter
	PriorityScores      prometheus.Histogram

	// Delivery metrics.
	LiveConnectionState prometheus.Gauge // ConnState ordinal
	QueueDepth          prometheus.Gauge
	QueueRetries        prometheus.Counter
	QueueDelivered      prometheus.Counter

	// Pipeline metrics.
	PipelineRunning     prometheus.Gauge
	ItemsProduced       prometheus.Counter
	AlertsEmitted       prometheus.Counter
	CycleDuration       prometheus.Histogram
	GeocodeRequests     *prometheus.CounterVec // labels: provider, outcome={success,error,empty}
	GeocodeCacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	// HTTP surface metrics.
	ReportsReceived *prometheus.CounterVec // labels: outcome={accepted,queued,rejected}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SchedulerDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "scheduler_dispatches_total",
			Help:      "Scheduler dispatches by source and outcome.",
		}, []string{"source", "outcome"}),
		SchedulerCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "scheduler_cache_total",
			Help:      "Scheduler cache lookups by source and result.",
		}, []string{"source", "result"}),
		SchedulerThrottleWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "scheduler_throttle_waits_total",
			Help:      "Requests that blocked waiting for a rate bucket token.",
		}, []string{"source"}),
		SchedulerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "scheduler_retries_total",
			Help:      "Dispatch retries by source.",
		}, []string{"source"}),
		ItemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "items_fetched_total",
			Help:      "Raw items fetched by connector source.",
		}, []string{"source"}),
		ConnectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "connector_errors_total",
			Help:      "Connector failures (total, not sub-query) by source.",
		}, []string{"source"}),
		ItemsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "items_classified_total",
			Help:      "Items that received a hazard classification.",
		}),
		ClassifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "classifier_fallbacks_total",
			Help:      "Classifications resolved by the deterministic keyword fallback.",
		}),
		PriorityScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_intel",
			Name:      "priority_score",
			Help:      "Distribution of computed priority scores.",
			Buckets:   []float64{1, 3, 6, 9, 12, 15, 18, 22, 26},
		}),
		LiveConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_intel",
			Name:      "live_connection_state",
			Help:      "Live feed connection state ordinal (0=disconnected ... 5=exhausted).",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_intel",
			Name:      "offline_queue_depth",
			Help:      "Reports currently waiting in the offline submission queue.",
		}),
		QueueRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "offline_queue_retries_total",
			Help:      "Failed submission attempts from the offline queue.",
		}),
		QueueDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "offline_queue_delivered_total",
			Help:      "Queued submissions delivered successfully.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_intel",
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		ItemsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "items_produced_total",
			Help:      "Classified items written to the sink topic.",
		}),
		AlertsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "alerts_emitted_total",
			Help:      "Alert records emitted above the priority threshold.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_intel",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-classify-aggregate-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		ReportsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "reports_received_total",
			Help:      "User report submissions by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SchedulerDispatches,
		m.SchedulerCacheLookups,
		m.SchedulerThrottleWaits,
		m.SchedulerRetries,
		m.ItemsFetched,
		m.ConnectorErrors,
		m.ItemsClassified,
		m.ClassifierFallbacks,
		m.PriorityScores,
		m.LiveConnectionState,
		m.QueueDepth,
		m.QueueRetries,
		m.QueueDelivered,
		m.PipelineRunning,
		m.ItemsProduced,
		m.AlertsEmitted,
		m.CycleDuration,
		m.GeocodeRequests,
		m.GeocodeCacheLookups,
		m.ReportsReceived,
	}
}
