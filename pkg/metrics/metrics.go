package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	ModulesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "modkit_modules_total",
			Help: "Total number of registered modules by status",
		},
		[]string{"status"},
	)

	LifecycleOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modkit_lifecycle_operations_total",
			Help: "Total number of lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Gate metrics
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modkit_gate_decisions_total",
			Help: "Total number of routing gate decisions by outcome",
		},
		[]string{"outcome"},
	)

	GateDecisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modkit_gate_decision_duration_seconds",
			Help:    "Routing gate decision duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modkit_store_read_duration_seconds",
			Help:    "Record store read latency on the admission path in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Route snapshot metrics
	SnapshotRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modkit_route_snapshot_rebuilds_total",
			Help: "Total number of route snapshot rebuilds",
		},
	)

	// Admin API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modkit_api_requests_total",
			Help: "Total number of admin API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ModulesTotal)
	prometheus.MustRegister(LifecycleOpsTotal)
	prometheus.MustRegister(GateDecisionsTotal)
	prometheus.MustRegister(GateDecisionDuration)
	prometheus.MustRegister(StoreReadDuration)
	prometheus.MustRegister(SnapshotRebuildsTotal)
	prometheus.MustRegister(APIRequestsTotal)
}

// Gate decision outcomes
const (
	OutcomeForwarded   = "forwarded"
	OutcomeRejected    = "rejected"
	OutcomePassthrough = "passthrough"
)

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
