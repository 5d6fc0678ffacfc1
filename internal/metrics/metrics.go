package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of submitted ledger operations by outcome",
		},
		[]string{"method", "outcome"},
	)

	RateFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_rate_fetch_duration_seconds",
			Help:    "Duration of remote exchange rate fetches",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	RateCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rate_cache_lookups_total",
			Help: "Rate table cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_ws_connections",
			Help: "Currently open operation websocket connections",
		},
	)
)
