// Package metrics exposes Prometheus counters and histograms for the
// investigation engine. The collector shape and promauto registration
// style are grounded on haasonsaas-nexus's internal/observability/metrics.go:
// one struct of pre-registered vectors, one constructor, and small
// Record* helpers so call sites never touch the prometheus API directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the investigation engine
// reports. Construct one with New and pass it to the orchestrator; the
// free-form agent loop and the tool executor do not record metrics.
type Metrics struct {
	// PhaseTransitions counts state-machine transitions.
	// Labels: from, to.
	PhaseTransitions *prometheus.CounterVec

	// PhaseDuration measures wall time spent in each phase.
	// Labels: phase.
	PhaseDuration *prometheus.HistogramVec

	// HypothesesTotal counts hypotheses by category and terminal status.
	// Labels: category, status (seeded|confirmed|pruned).
	HypothesesTotal *prometheus.CounterVec

	// ToolCallsTotal counts tool executions by tool name and outcome.
	// Labels: tool, status (success|error|timeout). A call served from
	// the cache counts as success; CacheHitsTotal counts the hit itself.
	ToolCallsTotal *prometheus.CounterVec

	// ToolCallDuration measures tool execution latency in seconds.
	// Labels: tool.
	ToolCallDuration *prometheus.HistogramVec

	// LLMRequestsTotal counts chat completions by phase and outcome.
	// Labels: phase, status (success|error).
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestDuration measures chat completion latency in seconds.
	// Labels: phase.
	LLMRequestDuration *prometheus.HistogramVec

	// CacheHitsTotal and CacheMissesTotal count tool-result cache lookups.
	// Labels: tool.
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// InvestigationsTotal counts finished runs by outcome.
	// Labels: outcome (confirmed|inconclusive|error).
	InvestigationsTotal *prometheus.CounterVec

	// ActiveInvestigations tracks runs currently in flight.
	ActiveInvestigations prometheus.Gauge
}

// New creates and registers every collector against the default
// Prometheus registry. Call it once at process startup.
func New() *Metrics {
	return &Metrics{
		PhaseTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_phase_transitions_total",
				Help: "Total number of state-machine phase transitions",
			},
			[]string{"from", "to"},
		),
		PhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "investigator_phase_duration_seconds",
				Help:    "Time spent in each investigation phase",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"phase"},
		),
		HypothesesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_hypotheses_total",
				Help: "Total number of hypotheses by category and terminal status",
			},
			[]string{"category", "status"},
		),
		ToolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_tool_calls_total",
				Help: "Total number of tool executions by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "investigator_tool_call_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool"},
		),
		LLMRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_llm_requests_total",
				Help: "Total number of LLM chat completions by phase and outcome",
			},
			[]string{"phase", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "investigator_llm_request_duration_seconds",
				Help:    "Duration of LLM chat completions in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"phase"},
		),
		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_cache_hits_total",
				Help: "Total number of tool-result cache hits",
			},
			[]string{"tool"},
		),
		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_cache_misses_total",
				Help: "Total number of tool-result cache misses",
			},
			[]string{"tool"},
		),
		InvestigationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investigator_investigations_total",
				Help: "Total number of completed investigations by outcome",
			},
			[]string{"outcome"},
		),
		ActiveInvestigations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "investigator_active_investigations",
				Help: "Number of investigations currently running",
			},
		),
	}
}

// RecordPhaseTransition increments the transition counter for from→to.
func (m *Metrics) RecordPhaseTransition(from, to string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(from, to).Inc()
}

// ObservePhaseDuration records the wall time spent in phase.
func (m *Metrics) ObservePhaseDuration(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordHypothesis records a hypothesis reaching a terminal or
// intermediate status.
func (m *Metrics) RecordHypothesis(category, status string) {
	if m == nil {
		return
	}
	m.HypothesesTotal.WithLabelValues(category, status).Inc()
}

// RecordToolCall records one tool execution's outcome and latency.
func (m *Metrics) RecordToolCall(toolName, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(toolName, status).Inc()
	m.ToolCallDuration.WithLabelValues(toolName).Observe(seconds)
}

// RecordLLMRequest records one chat completion's outcome and latency.
func (m *Metrics) RecordLLMRequest(phase, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(phase, status).Inc()
	m.LLMRequestDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordCacheHit and RecordCacheMiss record a tool-result cache lookup.
func (m *Metrics) RecordCacheHit(toolName string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(toolName).Inc()
}

func (m *Metrics) RecordCacheMiss(toolName string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(toolName).Inc()
}

// InvestigationStarted increments the active-investigations gauge.
func (m *Metrics) InvestigationStarted() {
	if m == nil {
		return
	}
	m.ActiveInvestigations.Inc()
}

// InvestigationFinished decrements the active-investigations gauge and
// records the run's terminal outcome.
func (m *Metrics) InvestigationFinished(outcome string) {
	if m == nil {
		return
	}
	m.ActiveInvestigations.Dec()
	m.InvestigationsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler that serves the default registry in
// the Prometheus exposition format, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
