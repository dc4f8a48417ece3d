// Package observability holds the Prometheus metrics for the API access
// layer: outbound request counts and latency, seed-dataset fallbacks, and
// session recoveries.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global collector instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the client.
type Collector struct {
	registry *prometheus.Registry

	// Transport metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Degradation metrics
	SeedFallbacks *prometheus.CounterVec

	// Session metrics
	SessionRecoveries prometheus.Counter
}

// NewCollector creates a metrics collector with the given namespace. A
// singleton guard avoids duplicate registration when tests re-initialize.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	apiRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of outbound API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Outbound API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	seedFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seed_fallbacks_total",
			Help:      "Total number of queries served from the local dataset",
		},
		[]string{"section"},
	)

	sessionRecoveries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_recoveries_total",
			Help:      "Total number of session recoveries triggered by 401 responses",
		},
	)

	registry.MustRegister(
		apiRequests,
		apiRequestDuration,
		seedFallbacks,
		sessionRecoveries,
	)

	globalCollector = &Collector{
		registry:           registry,
		APIRequests:        apiRequests,
		APIRequestDuration: apiRequestDuration,
		SeedFallbacks:      seedFallbacks,
		SessionRecoveries:  sessionRecoveries,
	}

	return globalCollector
}

// ResetForTesting resets the global collector for testing purposes.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// ObserveRequest records one outbound request. Nil-safe so callers can hold
// an optional collector without branching.
func (c *Collector) ObserveRequest(method, path, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.APIRequests.WithLabelValues(method, path, status).Inc()
	c.APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveFallback records one query served from the seed snapshot.
func (c *Collector) ObserveFallback(section string) {
	if c == nil {
		return
	}
	c.SeedFallbacks.WithLabelValues(section).Inc()
}

// ObserveRecovery records one session recovery.
func (c *Collector) ObserveRecovery() {
	if c == nil {
		return
	}
	c.SessionRecoveries.Inc()
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
