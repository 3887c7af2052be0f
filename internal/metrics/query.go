package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query, DSL and catalog metrics.
var (
	QueryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symdex",
			Name:      "query_executions_total",
			Help:      "Total query executions by mode and outcome",
		},
		[]string{"mode", "status"}, // status: ok / error / dry_run
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "symdex",
			Name:      "query_duration_seconds",
			Help:      "Query execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	DSLParseIssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symdex",
			Name:      "dsl_parse_issues_total",
			Help:      "DSL issues reported by the parser, by dialect",
		},
		[]string{"dialect"},
	)

	CatalogRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symdex",
			Name:      "catalog_rebuilds_total",
			Help:      "Catalog snapshot rebuilds by outcome",
		},
		[]string{"status"},
	)
)

var queryMetricsOnce sync.Once

// RegisterQueryMetrics registers query, DSL and catalog metrics. Repeated
// calls are no-ops.
func RegisterQueryMetrics() {
	queryMetricsOnce.Do(func() {
		prometheus.MustRegister(QueryExecutionsTotal, QueryDuration, DSLParseIssuesTotal, CatalogRebuildsTotal)
	})
}
