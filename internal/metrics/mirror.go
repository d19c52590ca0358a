package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index-synchronization Prometheus metrics.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esmirror",
			Name:      "index_operations_total",
			Help:      "Total per-record index and unindex operations",
		},
		[]string{"collection", "op", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "esmirror",
			Name:      "search_engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds, retries included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	RequestRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esmirror",
			Name:      "search_engine_request_retries_total",
			Help:      "Total transient-failure retries against the search engine",
		},
		[]string{"op"},
	)

	ResyncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esmirror",
			Name:      "resync_records_total",
			Help:      "Records processed by resynchronization jobs",
		},
		[]string{"collection", "result"}, // "indexed" / "failed"
	)

	ResyncJobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "esmirror",
			Name:      "resync_jobs_running",
			Help:      "Number of resynchronization jobs currently running",
		},
	)
)

var mirrorMetricsRegistered bool

// RegisterMirrorMetrics registers the sync metrics. Must be called once from main.
func RegisterMirrorMetrics() {
	if mirrorMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexOperationsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RequestRetriesTotal)
	prometheus.MustRegister(ResyncRecordsTotal)
	prometheus.MustRegister(ResyncJobsRunning)
	mirrorMetricsRegistered = true
}
