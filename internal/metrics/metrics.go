// Package metrics exposes operation counters and latencies for the
// provisioning and code endpoints. Internal error kinds that the HTTP
// responses deliberately hide are visible here as the "kind" label.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records the outcome of a service operation.
type Recorder interface {
	RecordOperation(operation, kind string, duration time.Duration)
}

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of operations by outcome kind.",
	}, []string{"operation", "kind"})

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	registry.MustRegister(operations, durations)

	return &Metrics{
		registry:   registry,
		operations: operations,
		durations:  durations,
	}
}

func (m *Metrics) RecordOperation(operation, kind string, duration time.Duration) {
	m.operations.WithLabelValues(operation, kind).Inc()
	m.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Operations exposes the operation counter, labelled by operation and kind.
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type nop struct{}

func (nop) RecordOperation(string, string, time.Duration) {}

// Nop discards everything.
func Nop() Recorder {
	return nop{}
}
