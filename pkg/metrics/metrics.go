package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ReconcileEffectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_reconcile_effects_total",
			Help: "Reconciled records by collection and effect (inserted, updated, unchanged).",
		},
		[]string{"collection", "effect"},
	)

	ListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_listings_total",
			Help: "Listings handled per city by outcome (stored, skipped, failed).",
		},
		[]string{"city", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_fetch_duration_seconds",
			Help:    "Duration of calls to the listing source.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"operation"}, // search, detail
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_fetch_errors_total",
			Help: "Failed calls to the listing source.",
		},
		[]string{"operation"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_runs_total",
			Help: "Harvest runs by final status.",
		},
		[]string{"status"},
	)

	HarvestTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_triggers_total",
			Help: "Requests to start a background harvest by source (schedule, api) and result (started, rejected).",
		},
		[]string{"source", "result"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvest_last_run_timestamp_seconds",
			Help: "Unix time the last harvest run finished.",
		},
	)
)

// Push sends the default registry to a Prometheus pushgateway under job.
func Push(gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
