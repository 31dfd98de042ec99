package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	sweepRuns    *prometheus.CounterVec
	sweepExpired prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edifice_allocation_operations_total",
			Help: "Allocation lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edifice_expiry_sweep_runs_total",
			Help: "Expiry sweep runs by outcome",
		}, []string{"outcome"}),
		sweepExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edifice_expiry_sweep_expired_total",
			Help: "Returnable allocations marked consumed by the expiry sweep",
		}),
	}
	m.registry.MustRegister(
		m.operations,
		m.sweepRuns,
		m.sweepExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe counts one operation. Errors are bucketed by class.
func (m *Metrics) Observe(operation string, err error) {
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) observeSweep(expired int, err error) {
	m.sweepRuns.WithLabelValues(outcome(err)).Inc()
	m.sweepExpired.Add(float64(expired))
}
