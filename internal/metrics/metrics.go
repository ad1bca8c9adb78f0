// Package metrics holds the Prometheus collectors for degraded paths. Every
// fallback the system absorbs silently is counted here so operators can see it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_gateway_results_total",
		Help: "Capability gateway results by operation and source (live, mock, fallback).",
	}, []string{"operation", "source"})

	StoreFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_store_fallbacks_total",
		Help: "Session store operations served by the in-memory backend after a durable failure.",
	}, []string{"operation"})

	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meal_pipeline_runs_total",
		Help: "Analysis runs by outcome.",
	}, []string{"result"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meal_pipeline_duration_seconds",
		Help:    "Wall time of a full detect and plan run.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})
)
