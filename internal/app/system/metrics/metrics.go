// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Draw outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeFailed    = "failed"
)

// Draw holds the draw service collectors.
type Draw struct {
	runs     *prometheus.CounterVec
	writes   *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

// NewDraw creates the draw collectors and registers them on reg.
func NewDraw(reg prometheus.Registerer) *Draw {
	d := &Draw{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secretsanta",
			Subsystem: "draw",
			Name:      "runs_total",
			Help:      "Draw runs by outcome.",
		}, []string{"outcome"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secretsanta",
			Subsystem: "draw",
			Name:      "writes_total",
			Help:      "Participant writes issued by draws, by phase and result.",
		}, []string{"phase", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "secretsanta",
			Subsystem: "draw",
			Name:      "duration_seconds",
			Help:      "Wall time of draw runs that passed preconditions.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "secretsanta",
			Subsystem: "draw",
			Name:      "in_flight",
			Help:      "Draws currently running in this process.",
		}),
	}
	if reg != nil {
		reg.MustRegister(d.runs, d.writes, d.duration, d.inFlight)
	}
	return d
}

// Run records the outcome of one draw. A nil *Draw is a no-op.
func (d *Draw) Run(outcome string) {
	if d == nil {
		return
	}
	d.runs.WithLabelValues(outcome).Inc()
}

// Writes records n write results for a phase ("reset" or "persist").
func (d *Draw) Writes(phase string, ok, failed int) {
	if d == nil {
		return
	}
	d.writes.WithLabelValues(phase, "ok").Add(float64(ok))
	d.writes.WithLabelValues(phase, "failed").Add(float64(failed))
}

// Observe records the duration since start.
func (d *Draw) Observe(start time.Time) {
	if d == nil {
		return
	}
	d.duration.Observe(time.Since(start).Seconds())
}

// Begin marks a draw as running and returns the matching end func.
func (d *Draw) Begin() func() {
	if d == nil {
		return func() {}
	}
	d.inFlight.Inc()
	return d.inFlight.Dec
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
