package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks module access gate activity.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	installs      prometheus.Counter
	uninstalls    *prometheus.CounterVec
	deniedChecks  prometheus.Counter
	storeFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_gate_cache_hits_total",
			Help: "Entitlement checks served from cache",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_gate_cache_misses_total",
			Help: "Entitlement checks that fell through to the store",
		}),
		installs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_module_installs_total",
			Help: "Successful module installs (including re-enables)",
		}),
		uninstalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_module_uninstalls_total",
			Help: "Successful module uninstalls",
		}, []string{"mode"}),
		deniedChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_gate_denied_total",
			Help: "Entitlement checks that answered false",
		}),
		storeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cortex_gate_store_failures_total",
			Help: "Entitlement lookups that failed at the store",
		}),
	}
}

func (m *Metrics) CacheHit()    { m.cacheHits.Inc() }
func (m *Metrics) CacheMiss()   { m.cacheMisses.Inc() }
func (m *Metrics) Install()     { m.installs.Inc() }
func (m *Metrics) Denied()      { m.deniedChecks.Inc() }
func (m *Metrics) StoreFailed() { m.storeFailures.Inc() }

func (m *Metrics) Uninstall(hard bool) {
	mode := "soft"
	if hard {
		mode = "hard"
	}
	m.uninstalls.WithLabelValues(mode).Inc()
}
