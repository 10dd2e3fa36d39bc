package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Decision metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	// Membership cache metrics
	MembershipCacheRequests *prometheus.CounterVec
	MembershipCacheEntries  prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachgate_decisions_total",
				Help: "Total number of access decisions",
			},
			[]string{"resource", "outcome", "cause"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coachgate_decision_duration_seconds",
				Help:    "Access decision latency in seconds, membership lookup included",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"outcome"},
		),

		MembershipCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachgate_membership_cache_requests_total",
				Help: "Membership cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		MembershipCacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coachgate_membership_cache_entries",
				Help: "Live entries in the in-process membership cache",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coachgate_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		DBConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coachgate_db_connections",
				Help: "Database pool connections by state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		m.DecisionsTotal,
		m.DecisionDuration,
		m.MembershipCacheRequests,
		m.MembershipCacheEntries,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnections,
	)

	return m
}

// RecordDecision counts one access decision
func (m *Metrics) RecordDecision(resource, outcome, cause string, elapsed time.Duration) {
	m.DecisionsTotal.WithLabelValues(resource, outcome, cause).Inc()
	m.DecisionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordMembershipCache counts one membership cache lookup
func (m *Metrics) RecordMembershipCache(tier, result string) {
	m.MembershipCacheRequests.WithLabelValues(tier, result).Inc()
}

// RecordHTTPRequest counts one served request. route is the route
// template, never the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetMembershipCacheEntries updates the cache size gauge
func (m *Metrics) SetMembershipCacheEntries(n int) {
	m.MembershipCacheEntries.Set(float64(n))
}

// UpdateDBStats copies pool statistics into the connection gauges
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBConnections.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
