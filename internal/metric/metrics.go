// Package metric exposes the service-level Prometheus metrics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters shared by the ingest and query paths
type Metrics struct {
	ReadingsIngested prometheus.Counter
	MessagesDropped  *prometheus.CounterVec
	QueriesServed    *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics on the default
// registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the service metrics and registers them on reg
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "traffic_light",
				Subsystem: "ingest",
				Name:      "readings_total",
				Help:      "Total number of readings persisted",
			},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "traffic_light",
				Subsystem: "ingest",
				Name:      "dropped_total",
				Help:      "Total number of telemetry messages dropped",
			},
			[]string{"reason"},
		),
		QueriesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "traffic_light",
				Subsystem: "query",
				Name:      "served_total",
				Help:      "Total number of history queries served",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.ReadingsIngested, m.MessagesDropped, m.QueriesServed)
	return m
}

// Drop reasons and query outcomes
const (
	DropMalformed = "malformed_payload"
	DropStorage   = "storage_error"

	QueryOK            = "ok"
	QueryInvalidFilter = "invalid_filter"
	QueryStorageError  = "storage_error"
)
