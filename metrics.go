package tetherarm

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// driverMetrics holds the Prometheus collectors for one Driver instance.
// Each Driver owns a private registry rather than registering into the
// global default registry, so multiple Drivers in one process never
// collide.
type driverMetrics struct {
	registry         *prometheus.Registry
	cycles           prometheus.Counter
	retransmissions  prometheus.Counter
	cycleLatency     prometheus.Histogram
	errorsByKind     *prometheus.CounterVec
}

func newDriverMetrics() *driverMetrics {
	m := &driverMetrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tetherarm_daemon_cycles_total",
			Help: "Number of completed daemon command/response cycles.",
		}),
		retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tetherarm_retransmissions_total",
			Help: "Number of UDP retransmissions across all transactions.",
		}),
		cycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tetherarm_cycle_latency_seconds",
			Help:    "Wall-clock time spent waiting for one UDP reply, per attempt, across all transactions.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		errorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tetherarm_errors_total",
			Help: "Latched errors observed, by ErrorState kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.cycles, m.retransmissions, m.cycleLatency, m.errorsByKind)
	return m
}

func (m *driverMetrics) observeError(kind ErrorState) {
	m.errorsByKind.WithLabelValues(kind.String()).Inc()
}

// MetricsHandler returns an http.Handler exposing this Driver's
// Prometheus metrics in text exposition format. The driver never starts
// its own HTTP server (it is a library with no Environment of its own);
// the embedding application mounts this handler wherever it wants.
func (d *Driver) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(d.metrics.registry, promhttp.HandlerOpts{})
}
