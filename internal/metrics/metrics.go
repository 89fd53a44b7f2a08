// Package metrics exposes Prometheus counters for update handling and the
// ledger. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitbot"

// Metrics holds the bot's collectors.
type Metrics struct {
	registry *prometheus.Registry

	updates     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	adjustments prometheus.Counter
	duration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Inbound chat updates by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Expense transitions by action and result.",
		}, []string{"action", "result"}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_adjustments_total",
			Help:      "Member balance adjustments committed by finish and edit.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one inbound update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.transitions,
		m.adjustments,
		m.duration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Update records one handled update.
func (m *Metrics) Update(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(seconds)
}

// Transition records one transition attempt. result is "applied",
// "rejected", "invalid" or "error".
func (m *Metrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

// Adjustments records n committed balance adjustments.
func (m *Metrics) Adjustments(n int) {
	if m == nil || n == 0 {
		return
	}
	m.adjustments.Add(float64(n))
}
