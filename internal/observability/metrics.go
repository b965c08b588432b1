// Package observability provides the metrics and tracing adapters used by
// the core's advisory instrumentation. None of it is on the correctness
// path; it exists purely so operators can see what the registry and
// runner are doing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus counters and histograms for agent runs and
// tool executions.
type Metrics struct {
	AgentRunCounter       *prometheus.CounterVec
	AgentRunDuration      *prometheus.HistogramVec
	ActiveAgents          *prometheus.GaugeVec
	ToolExecutionCounter  *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec
	RegistryEvictions     prometheus.Counter
}

// NewMetrics registers and returns the metric set against the given
// registerer. Pass prometheus.DefaultRegisterer for the global registry,
// or a fresh prometheus.NewRegistry() in tests to avoid collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AgentRunCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "agent_runs_total",
			Help:      "Total agent runner invocations by agent type and outcome.",
		}, []string{"agent_type", "outcome"}),
		AgentRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentcore",
			Name:      "agent_run_duration_seconds",
			Help:      "Agent run wall-clock duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"agent_type"}),
		ActiveAgents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentcore",
			Name:      "active_agents",
			Help:      "Current number of Running agent instances.",
		}, []string{"agent_type"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "tool_executions_total",
			Help:      "Total tool invocations by name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentcore",
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		RegistryEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "registry_evictions_total",
			Help:      "Total agent instances removed by the idle-TTL sweep.",
		}),
	}
}

// ObserveAgentRun records one completed or failed agent run.
func (m *Metrics) ObserveAgentRun(agentType string, isError bool, elapsed time.Duration) {
	outcome := "success"
	if isError {
		outcome = "error"
	}
	m.AgentRunCounter.WithLabelValues(agentType, outcome).Inc()
	m.AgentRunDuration.WithLabelValues(agentType).Observe(elapsed.Seconds())
}

// ObserveToolExecution records one tool invocation.
func (m *Metrics) ObserveToolExecution(tool string, success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.ToolExecutionCounter.WithLabelValues(tool, outcome).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
