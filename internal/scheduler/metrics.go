package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scheduler counters, exported on the gateway's /metrics.
type Metrics struct {
	Scans      prometheus.Counter
	Dispatches prometheus.Counter
	Failures   prometheus.Counter
	InFlight   prometheus.Gauge
	ActiveJobs prometheus.Gauge
}

// NewMetrics registers the scheduler metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Scans: factory.NewCounter(prometheus.CounterOpts{
			Name: "chime_scans_total",
			Help: "Number of due-job scans performed.",
		}),
		Dispatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "chime_dispatches_total",
			Help: "Number of job executions dispatched.",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chime_failures_total",
			Help: "Number of job executions that reported failure.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chime_in_flight",
			Help: "Number of job executions currently running.",
		}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chime_jobs_active",
			Help: "Number of active jobs observed by the last scan.",
		}),
	}
}
