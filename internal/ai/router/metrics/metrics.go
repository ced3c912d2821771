package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks task routing outcomes.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	gateDenied *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		executions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_router_executions_total",
			Help: "Task executions by task type, provider and outcome",
		}, []string{"task", "provider", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cortex_router_execution_duration_seconds",
			Help:    "End-to-end task execution latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task", "provider"}),
		gateDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_router_gate_denials_total",
			Help: "Executions rejected because the module was not enabled",
		}, []string{"module"}),
	}
}

func (m *Metrics) Execution(task, provider, status string, elapsed time.Duration) {
	m.executions.WithLabelValues(task, provider, status).Inc()
	m.duration.WithLabelValues(task, provider).Observe(elapsed.Seconds())
}

func (m *Metrics) GateDenied(module string) {
	m.gateDenied.WithLabelValues(module).Inc()
}
