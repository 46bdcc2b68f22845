// Package metrics exposes Prometheus instrumentation for the aggregation
// engine. Counters are registered via promauto and served by the server
// binary's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CollectionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "family_events_collection_attempts_total",
		Help: "Total collection attempts, labelled by source, mode, and outcome.",
	}, []string{"source", "mode", "outcome"})

	EventsReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "family_events_returned_total",
		Help: "Total events returned after deduplication, labelled by source.",
	}, []string{"source"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "family_events_requests_total",
		Help: "Total aggregation requests, labelled by status.",
	}, []string{"status"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "family_events_request_duration_ms",
		Help:    "End-to-end aggregation request latency in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})

	DynamicSessionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "family_events_dynamic_sessions_in_use",
		Help: "Browser sessions currently held by dynamic collectors.",
	})
)
