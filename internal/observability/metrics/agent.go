package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const namespace = "itinerary"

// AgentMetrics records planning-loop observations for one service.
type AgentMetrics struct {
	service string

	toolCallsTotal  *prometheus.CounterVec
	replansTotal    *prometheus.CounterVec
	planSourceTotal *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	budgetRemaining *prometheus.HistogramVec
}

var _ ports.AgentMetrics = (*AgentMetrics)(nil)

func NewAgentMetrics(service string, registerer prometheus.Registerer) *AgentMetrics {
	toolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Total gateway dispatches by tool and status.",
		},
		[]string{"service", "tool", "status"},
	)
	replansTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "replans_total",
			Help:      "Total plan mutations by constraint.",
		},
		[]string{"service", "constraint"},
	)
	planSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "plans_total",
			Help:      "Total created plans by source.",
		},
		[]string{"service", "source"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Total completed planning runs by status.",
		},
		[]string{"service", "status"},
	)
	budgetRemaining := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "budget_remaining",
			Help:      "Budget left at the end of a planning run.",
			Buckets:   []float64{-500, -100, 0, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"service", "status"},
	)

	registerer.MustRegister(toolCallsTotal, replansTotal, planSourceTotal, runsTotal, budgetRemaining)

	return &AgentMetrics{
		service:         service,
		toolCallsTotal:  toolCallsTotal,
		replansTotal:    replansTotal,
		planSourceTotal: planSourceTotal,
		runsTotal:       runsTotal,
		budgetRemaining: budgetRemaining,
	}
}

func (m *AgentMetrics) RecordToolCall(tool, status string) {
	m.toolCallsTotal.WithLabelValues(m.service, orUnknown(tool), orUnknown(status)).Inc()
}

func (m *AgentMetrics) RecordReplan(constraint string) {
	m.replansTotal.WithLabelValues(m.service, orUnknown(constraint)).Inc()
}

func (m *AgentMetrics) RecordPlanSource(source string) {
	m.planSourceTotal.WithLabelValues(m.service, orUnknown(source)).Inc()
}

func (m *AgentMetrics) RecordRun(status string, budgetRemaining float64) {
	status = orUnknown(status)
	m.runsTotal.WithLabelValues(m.service, status).Inc()
	m.budgetRemaining.WithLabelValues(m.service, status).Observe(budgetRemaining)
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
