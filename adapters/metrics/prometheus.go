package metrics

import (
	"net/http"

	"github.com/layer-3/walletauth/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics records authentication outcomes into its own registry
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	attempts  *prometheus.CounterVec
	throttles *prometheus.CounterVec
}

var _ ports.Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with a fresh registry
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication steps segmented by step and outcome.",
		}, []string{"step", "outcome"}),
		throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Subsystem: "auth",
			Name:      "throttles_total",
			Help:      "Requests rejected by a rate limiter, segmented by scope.",
		}, []string{"scope"}),
	}
	m.registry.MustRegister(
		m.attempts,
		m.throttles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAuth counts one authentication step outcome
func (m *PrometheusMetrics) ObserveAuth(step, outcome string) {
	m.attempts.WithLabelValues(step, outcome).Inc()
}

// ObserveThrottle counts one rate-limited request
func (m *PrometheusMetrics) ObserveThrottle(scope string) {
	m.throttles.WithLabelValues(scope).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

