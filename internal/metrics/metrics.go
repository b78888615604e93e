// Package metrics defines the Prometheus collectors for an extraction run
// and writes them out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	registry *prometheus.Registry

	ItemsTotal     *prometheus.CounterVec
	AttemptsTotal  *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
	CacheHitsTotal prometheus.Counter
	RunDuration    prometheus.Gauge
	LastRunTime    prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casefile_items_total",
				Help: "Documents processed by final outcome (success, extraction, transport, malformed, validation).",
			},
			[]string{"outcome"},
		),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casefile_attempts_total",
				Help: "Remote extraction attempts by result.",
			},
			[]string{"result"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casefile_call_duration_seconds",
				Help:    "Remote extraction call latency in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "casefile_cache_hits_total",
				Help: "Documents answered from the in-run cache without a remote call.",
			},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "casefile_run_duration_seconds",
				Help: "Wall time of the last extraction run.",
			},
		),
		LastRunTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "casefile_last_run_timestamp_seconds",
				Help: "Unix time the last extraction run finished.",
			},
		),
	}

	m.registry.MustRegister(
		m.ItemsTotal,
		m.AttemptsTotal,
		m.CallDuration,
		m.CacheHitsTotal,
		m.RunDuration,
		m.LastRunTime,
	)

	return m
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the run's wall time and completion timestamp
func (m *Metrics) ObserveRun(started, finished time.Time) {
	m.RunDuration.Set(finished.Sub(started).Seconds())
	m.LastRunTime.Set(float64(finished.Unix()))
}

// WriteTextfile writes all collectors to path, atomically
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
