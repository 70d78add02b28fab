// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests counts TMDB calls by endpoint and outcome
	// (success, not_found, bad_request, failure, rejected).
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of requests made to the external movie catalog",
		},
		[]string{"endpoint", "outcome"},
	)

	// CatalogRetries counts retried catalog attempts.
	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_retries_total",
			Help: "Total number of retried catalog attempts",
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CacheOperations counts cache lookups and writes by result.
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Recommendations counts generated recommendation lists by pool source.
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Total number of generated recommendation lists by candidate pool source",
		},
		[]string{"source", "personalized"},
	)

	// CatalogRefreshes counts scheduled catalog refresh runs.
	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_runs_total",
			Help: "Total number of scheduled catalog refresh runs by result",
		},
		[]string{"result"},
	)
)
