// Package metrics owns the process-wide Prometheus registry. Collectors live
// for the life of the process; there is no teardown.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets are the latency histogram boundaries in seconds.
var durationBuckets = []float64{0.1, 0.5, 1, 2, 5}

// Metrics bundles the service's collectors around a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	postsCreated    *prometheus.CounterVec
	activeUsers     prometheus.Gauge
}

// New creates a registry with the service collectors plus the standard Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status_code"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		postsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posts_created_total",
			Help: "Total number of posts created",
		}, []string{"author"}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_users_total",
			Help: "Number of active users",
		}),
	}

	m.registry.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.postsCreated,
		m.activeUsers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest records one handled request in both the latency histogram and
// the request counter.
func (m *Metrics) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.requestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
}

// PostCreated increments the post-creation counter for an author.
func (m *Metrics) PostCreated(author string) {
	m.postsCreated.WithLabelValues(author).Inc()
}

// SetActiveUsers records the current active-user count.
func (m *Metrics) SetActiveUsers(n int) {
	m.activeUsers.Set(float64(n))
}

// Handler returns the text-exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
