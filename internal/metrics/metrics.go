// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset of Collector used by the provider client and the
// session and auth layers. Nop satisfies it for tests.
type Recorder interface {
	RecordProviderRequest(endpoint string, statusCode int, duration time.Duration)
	RecordProviderFailure(endpoint string, reason string)
	RecordAuthEvent(event string)
	RecordSession(state string)
}

// Collector records gateway metrics into a Prometheus registry.
type Collector struct {
	providerRequests *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	authEvents       *prometheus.CounterVec
	sessions         *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinegate_provider_requests_total",
			Help: "Provider requests by endpoint and HTTP status code",
		}, []string{"endpoint", "status_code"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinegate_provider_failures_total",
			Help: "Provider requests that failed before a response was decoded",
		}, []string{"endpoint", "reason"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinegate_provider_latency_seconds",
			Help:    "Provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinegate_auth_events_total",
			Help: "Registration, login and logout outcomes",
		}, []string{"event"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinegate_sessions_resolved_total",
			Help: "Session resolution outcomes per request",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.providerRequests,
		c.providerFailures,
		c.providerLatency,
		c.authEvents,
		c.sessions,
	)

	return c
}

func (c *Collector) RecordProviderRequest(endpoint string, statusCode int, duration time.Duration) {
	c.providerRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.providerLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordProviderFailure(endpoint string, reason string) {
	c.providerFailures.WithLabelValues(endpoint, reason).Inc()
}

func (c *Collector) RecordAuthEvent(event string) {
	c.authEvents.WithLabelValues(event).Inc()
}

func (c *Collector) RecordSession(state string) {
	c.sessions.WithLabelValues(state).Inc()
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) RecordProviderRequest(string, int, time.Duration) {}
func (Nop) RecordProviderFailure(string, string)             {}
func (Nop) RecordAuthEvent(string)                           {}
func (Nop) RecordSession(string)                             {}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
