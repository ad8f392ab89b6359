// Package metrics provides Prometheus collectors for the client: statement
// counts, request latency, payload volume, schema alterations and cache
// effectiveness. Collectors register automatically via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatementsTotal counts executed statements.
	// Labels: kind (select/insert/ddl), status (success/failure)
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickwire_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"kind", "status"},
	)

	// RequestLatency tracks the distribution of round-trip latencies.
	// Labels: kind (select/insert/ddl/ping)
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clickwire_request_latency_seconds",
			Help:    "Round-trip request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"kind"},
	)

	// PayloadBytes counts wire payload volume.
	// Labels: direction (sent/received)
	PayloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickwire_payload_bytes_total",
			Help: "Total payload bytes on the wire",
		},
		[]string{"direction"},
	)

	// SchemaAlterations counts DDL issued by the schema reconciler.
	// Labels: operation (add_column/modify_column/optimize)
	SchemaAlterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickwire_schema_alterations_total",
			Help: "Total schema alterations issued by the reconciler",
		},
		[]string{"operation"},
	)

	// ReconcileRetries counts reconciliation attempts retried after
	// transient remote schema conflicts.
	ReconcileRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clickwire_schema_reconcile_retries_total",
			Help: "Total schema reconciliation retries",
		},
	)

	// CacheRequests counts cached-select lookups.
	// Labels: outcome (hit/miss)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickwire_cache_requests_total",
			Help: "Total filterable-cache lookups",
		},
		[]string{"outcome"},
	)

	// ActiveRequests tracks in-flight HTTP requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clickwire_active_requests",
			Help: "Number of in-flight requests",
		},
	)
)

// Timer measures one operation and records it into RequestLatency.
type Timer struct {
	start time.Time
	kind  string
}

// NewTimer starts timing an operation of the given kind.
func NewTimer(kind string) *Timer {
	return &Timer{start: time.Now(), kind: kind}
}

// ObserveDuration records the elapsed time and returns it.
func (t *Timer) ObserveDuration() time.Duration {
	elapsed := time.Since(t.start)
	RequestLatency.WithLabelValues(t.kind).Observe(elapsed.Seconds())
	return elapsed
}
