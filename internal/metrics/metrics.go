// Package metrics exposes Prometheus collectors for the ledger core.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupledger"

// Metrics holds the collectors registered for one server.
type Metrics struct {
	registry *prometheus.Registry

	Invocations       *prometheus.CounterVec
	InvocationSeconds *prometheus.HistogramVec
	GateDecisions     *prometheus.CounterVec
	Generated         prometheus.Counter
	RuleFailures      *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Dispatched actions by action name and outcome code.",
		}, []string{"action", "code"}),
		InvocationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Time spent dispatching an action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate outcomes: granted, created, rechecked, denied.",
		}, []string{"outcome"}),
		Generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_generated_total",
			Help:      "Transactions materialized by recurring catch-up.",
		}),
		RuleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_rule_failures_total",
			Help:      "Rules skipped during catch-up, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Invocations,
		m.InvocationSeconds,
		m.GateDecisions,
		m.Generated,
		m.RuleFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveInvocation records one dispatched action.
func (m *Metrics) ObserveInvocation(action, code string, seconds float64) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.Invocations.WithLabelValues(action, code).Inc()
	m.InvocationSeconds.WithLabelValues(action).Observe(seconds)
}

// GateDecision records an access gate outcome.
func (m *Metrics) GateDecision(outcome string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(outcome).Inc()
}

// AddGenerated records materialized occurrences.
func (m *Metrics) AddGenerated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Generated.Add(float64(n))
}

// RuleFailure records a rule skipped during catch-up.
func (m *Metrics) RuleFailure(reason string) {
	if m == nil {
		return
	}
	m.RuleFailures.WithLabelValues(reason).Inc()
}
