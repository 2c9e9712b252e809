// Package metrics exposes prometheus collectors for agent and flow invocations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeFailed       = "failed"
	OutcomeError        = "error"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	steps              *prometheus.CounterVec
	stepDuration       prometheus.Histogram
	flowLength         prometheus.Histogram
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agents_invocations_total",
				Help: "Total number of agent and flow invocations",
			},
			[]string{"kind", "outcome"}, // kind: agent|flow
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agents_invocation_duration_seconds",
				Help:    "Invocation duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agents_flow_steps_total",
				Help: "Total number of executed flow steps",
			},
			[]string{"outcome"},
		),
		stepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agents_flow_step_duration_seconds",
				Help:    "Flow step duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		flowLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agents_flow_length",
				Help:    "Number of agents in invoked flows",
				Buckets: []float64{1, 2, 3, 5, 8, 13},
			},
		),
	}

	m.registry.MustRegister(
		m.invocations,
		m.invocationDuration,
		m.steps,
		m.stepDuration,
		m.flowLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInvocation records a finished agent or flow invocation.
func (m *Metrics) ObserveInvocation(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(kind, outcome).Inc()
	m.invocationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveStep records one flow step.
func (m *Metrics) ObserveStep(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(outcome).Inc()
	m.stepDuration.Observe(d.Seconds())
}

// ObserveFlowLength records how many agents an invoked flow resolves to.
func (m *Metrics) ObserveFlowLength(n int) {
	if m == nil {
		return
	}
	m.flowLength.Observe(float64(n))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
