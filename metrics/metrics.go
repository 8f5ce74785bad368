/*
Package metrics defines the Prometheus collectors for the PointFlow service.

PURPOSE:
  Counts what the service decides (accepted vs rejected commands, redemption
  outcomes) and how the HTTP layer performs. Exposed at GET /metrics.

COLLECTORS:
  pointflow_commands_total{command, outcome}      executor decisions
  pointflow_redemptions_total{status}             final redemption states
  pointflow_active_sessions                       connected wallets
  pointflow_http_requests_total{route, status}    API traffic
  pointflow_http_request_duration_seconds{route}  API latency

REGISTRY:
  New takes a Registerer so tests can use a private registry instead of
  the process-wide default. A nil *Metrics is valid and records nothing.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for command counters.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the service collectors.
type Metrics struct {
	Commands       *prometheus.CounterVec
	Redemptions    *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. If reg is also a Gatherer,
// Handler serves it; otherwise Handler serves the default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointflow",
			Name:      "commands_total",
			Help:      "Ledger commands by command and outcome.",
		}, []string{"command", "outcome"}),
		Redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointflow",
			Name:      "redemptions_total",
			Help:      "Redemptions by final status.",
		}, []string{"status"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "pointflow",
			Name:      "active_sessions",
			Help:      "Connected wallet sessions.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointflow",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pointflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Command records an executor decision.
func (m *Metrics) Command(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

// Redemption records a redemption reaching a final status.
func (m *Metrics) Redemption(status string) {
	if m == nil {
		return
	}
	m.Redemptions.WithLabelValues(status).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// Request records one HTTP request.
func (m *Metrics) Request(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
