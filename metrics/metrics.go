// Package metrics publishes pool health as Prometheus collectors,
// reproducing the shape of the teacher pack's observability package
// (promauto-registered gauges/counters/histograms against a dedicated
// registerer) scoped down to what a subprocess worker pool can report:
// busy/idle worker counts, call latency, and force-quit events.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds every metric this package exposes. Callers get one from
// New and feed it themselves (ObserveLatency, Snapshot); procpool has no
// Option that takes a Collectors.
type Collectors struct {
	WorkersBusy      prometheus.Gauge
	WorkersIdle      prometheus.Gauge
	WorkersForceQuit prometheus.Gauge
	CallLatency      prometheus.Histogram
	ForceQuitTotal   prometheus.Counter
}

// New registers a fresh set of collectors against registerer. Pass
// prometheus.DefaultRegisterer for the process-wide default registry, or
// a scoped registerer (as the teacher does with
// prometheus.WrapRegistererWith) to label every metric with a service
// name.
func New(registerer prometheus.Registerer) *Collectors {
	return &Collectors{
		WorkersBusy: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "procpool_workers_busy",
			Help: "Number of workers currently executing a call.",
		}),
		WorkersIdle: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "procpool_workers_idle",
			Help: "Number of workers ready to accept a call.",
		}),
		WorkersForceQuit: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "procpool_workers_force_quit",
			Help: "Number of workers that have been permanently retired.",
		}),
		CallLatency: promauto.With(registerer).NewHistogram(prometheus.HistogramOpts{
			Name:    "procpool_call_latency_seconds",
			Help:    "Time from Call dispatch to Handle.Result returning.",
			Buckets: prometheus.DefBuckets,
		}),
		ForceQuitTotal: promauto.With(registerer).NewCounter(prometheus.CounterOpts{
			Name: "procpool_force_quit_total",
			Help: "Total number of workers force-quit, across every ForceQuitAll call.",
		}),
	}
}

// ObserveLatency records the duration between dispatch and resolution of
// one call.
func (c *Collectors) ObserveLatency(since time.Time) {
	c.CallLatency.Observe(time.Since(since).Seconds())
}

// Snapshot mirrors a procpool.PoolMetrics reading into the gauges; callers
// poll this periodically (e.g. from cmd/poolctl) rather than pushing on
// every state change.
type Snapshot struct {
	Busy      int
	Idle      int
	ForceQuit int
}

func (c *Collectors) Snapshot(s Snapshot) {
	c.WorkersBusy.Set(float64(s.Busy))
	c.WorkersIdle.Set(float64(s.Idle))
	c.WorkersForceQuit.Set(float64(s.ForceQuit))
}
