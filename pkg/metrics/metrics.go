// Package metrics collects the synchronizer's operational counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "homesync_"

// Metrics holds the process-wide instrumentation. Each instance carries
// its own registry so tests can construct them freely.
type Metrics struct {
	registry *prometheus.Registry

	Transitions    *prometheus.CounterVec
	StoreErrors    prometheus.Counter
	NotifyFailures prometheus.Counter
	Conflicts      prometheus.Counter
	TickDuration   prometheus.Histogram
}

// New creates and registers the instrument set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "relay_transitions_total",
			Help: "Confirmed relay state transitions",
		}, []string{"relay", "to"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "store_errors_total",
			Help: "Store gateway read/write failures",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "notify_failures_total",
			Help: "Push notification deliveries that failed",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "relay_conflicts_total",
			Help: "Reconcile passes where devices sharing a relay disagreed",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "sync_tick_duration_seconds",
			Help:    "Duration of a full synchronization cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.Transitions, m.StoreErrors, m.NotifyFailures, m.Conflicts, m.TickDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
