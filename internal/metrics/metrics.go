// Package metrics exposes Prometheus collectors for optimization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "diffevo"

// Collector groups the metrics recorded for engine runs.
type Collector struct {
	runs         prometheus.Gauge
	generations  *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	bestCost     *prometheus.GaugeVec
	stepDuration *prometheus.HistogramVec
	terminations *prometheus.CounterVec
}

// NewCollector creates the run metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		runs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of optimization runs currently held in memory.",
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations completed, by cost function.",
		}, []string{"function"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Cost function evaluations, by cost function.",
		}, []string{"function"}),
		bestCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_cost",
			Help:      "Lowest cost found so far, by run.",
		}, []string{"run_id"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of OptimizeStep calls, by cost function.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"function"}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminations_total",
			Help:      "Runs stopped by their termination condition, by cost function.",
		}, []string{"function"}),
	}

	for _, m := range []prometheus.Collector{
		c.runs, c.generations, c.evaluations, c.bestCost, c.stepDuration, c.terminations,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RunCreated records a new run and its initial best cost and evaluations.
func (c *Collector) RunCreated(runID, function string, bestCost float64, evaluations int) {
	c.runs.Inc()
	c.bestCost.WithLabelValues(runID).Set(bestCost)
	c.evaluations.WithLabelValues(function).Add(float64(evaluations))
}

// RunDeleted drops the per-run series of runID.
func (c *Collector) RunDeleted(runID string) {
	c.runs.Dec()
	c.bestCost.DeleteLabelValues(runID)
}

// GenerationCompleted records one generation of a run.
func (c *Collector) GenerationCompleted(runID, function string, bestCost float64) {
	c.generations.WithLabelValues(function).Inc()
	c.bestCost.WithLabelValues(runID).Set(bestCost)
}

// StepCompleted records the duration and evaluation count of an OptimizeStep
// call.
func (c *Collector) StepCompleted(function string, d time.Duration, evaluations int, terminated bool) {
	c.stepDuration.WithLabelValues(function).Observe(d.Seconds())
	c.evaluations.WithLabelValues(function).Add(float64(evaluations))
	if terminated {
		c.terminations.WithLabelValues(function).Inc()
	}
}
