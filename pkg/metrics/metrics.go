// Package metrics registers the prometheus instruments for the fee
// resolution core. Anomaly counters back the "fail soft, count for
// offline audit" error policy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionAnomalies counts recorded payments that could not be
	// attributed (missing transaction id, failed metadata fetch,
	// non-positive exchange rate). Labels: reason.
	ResolutionAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referral",
		Subsystem: "fees",
		Name:      "resolution_anomalies_total",
		Help:      "Recorded payments skipped during fee resolution, by reason",
	}, []string{"reason"})

	// ResolutionsBySource counts resolved amounts by precedence tier
	ResolutionsBySource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referral",
		Subsystem: "fees",
		Name:      "resolutions_total",
		Help:      "Resolved fee amounts, by winning source",
	}, []string{"source"})

	// BatchChunkFailures counts batch loader chunks that errored and were skipped
	BatchChunkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referral",
		Subsystem: "batch",
		Name:      "chunk_failures_total",
		Help:      "Batch loader chunks skipped after a query failure",
	}, []string{"loader"})

	// CacheRequests counts result cache lookups. Labels: outcome (hit|miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referral",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Result cache lookups, by outcome",
	}, []string{"outcome"})

	// ProcessorLookups counts payment-intent metadata fetches. Labels: outcome.
	ProcessorLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referral",
		Subsystem: "processor",
		Name:      "lookups_total",
		Help:      "Payment-intent metadata lookups, by outcome",
	}, []string{"outcome"})

	// DatabaseConnectionsGauge tracks pool state. Labels: state.
	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "referral",
		Subsystem: "db",
		Name:      "connections",
		Help:      "Database connection pool state",
	}, []string{"state"})
)
