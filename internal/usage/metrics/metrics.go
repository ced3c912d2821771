package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks usage ledger activity.
type Metrics struct {
	eventsRecorded *prometheus.CounterVec
	unitsBilled    *prometheus.CounterVec
	tokensBilled   *prometheus.CounterVec
	recordFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		eventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_usage_events_total",
			Help: "Number of usage events appended to the ledger",
		}, []string{"module"}),
		unitsBilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_usage_units_total",
			Help: "Billing units recorded, by module",
		}, []string{"module"}),
		tokensBilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_usage_tokens_total",
			Help: "Total tokens recorded, by module",
		}, []string{"module"}),
		recordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_usage_record_failures_total",
			Help: "Number of usage events that failed to persist",
		}),
	}
}

func (m *Metrics) RecordEvent(module string, units, tokens int) {
	m.eventsRecorded.WithLabelValues(module).Inc()
	m.unitsBilled.WithLabelValues(module).Add(float64(units))
	m.tokensBilled.WithLabelValues(module).Add(float64(tokens))
}

func (m *Metrics) RecordFailure() {
	m.recordFailures.Inc()
}
