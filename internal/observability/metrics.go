package observability

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and gauges of one extraction job.
type Metrics struct {
	registry *prometheus.Registry

	FilesOpened prometheus.Counter
	StepsRead   prometheus.Counter
	RowsWritten prometheus.Counter
	RowsDropped prometheus.Counter

	JobDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewMetrics creates job metrics labelled with the extracted variable on a
// registry of their own, so every job starts from zero.
func NewMetrics(variable string) *Metrics {
	labels := prometheus.Labels{"variable": variable}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "nwm_point",
			Name:        "files_opened_total",
			Help:        "Gridded files concatenated into the series.",
			ConstLabels: labels,
		}),
		StepsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "nwm_point",
			Name:        "time_steps_read_total",
			Help:        "Time steps read from the gridded files.",
			ConstLabels: labels,
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "nwm_point",
			Name:        "rows_written_total",
			Help:        "Station samples written to the archive.",
			ConstLabels: labels,
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "nwm_point",
			Name:        "rows_dropped_total",
			Help:        "Station samples dropped because the value was undefined.",
			ConstLabels: labels,
		}),
		JobDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "nwm_point",
			Name:        "job_duration_seconds",
			Help:        "Wall-clock duration of the last extraction job.",
			ConstLabels: labels,
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "nwm_point",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time the last extraction job finished successfully.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(
		m.FilesOpened,
		m.StepsRead,
		m.RowsWritten,
		m.RowsDropped,
		m.JobDuration,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry holding the job metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrap(prometheus.WriteToTextfile(path, m.registry), "write metrics textfile")
}
