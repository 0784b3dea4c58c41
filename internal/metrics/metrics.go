// Package metrics provides Prometheus instrumentation for the evaluation
// engine: update_state duration, evaluation counts by reason, the
// pre-evaluated cache hit rate, and pool-acquire wait time.
//
// All metrics are registered in a custom [prometheus.Registry] (not the
// global default), and Handler returns an [http.Handler] an embedder mounts
// at whatever path it likes — the engine itself never opens a listening
// socket.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors used by the engine.
type Metrics struct {
	Registry *prometheus.Registry

	UpdateStateDuration prometheus.Histogram
	UpdateStateTotal    *prometheus.CounterVec
	SnapshotGeneration  prometheus.Gauge
	FlagsLoaded         prometheus.Gauge

	EvaluationsTotal    *prometheus.CounterVec
	EvaluationDuration  prometheus.Histogram
	PreEvaluatedHits    prometheus.Counter
	PreEvaluatedMisses  prometheus.Counter
	PoolAcquireDuration prometheus.Histogram
}

// New creates and registers all engine metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		UpdateStateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flagkit_update_state_duration_seconds",
			Help:    "Time to validate, expand, and pre-evaluate a new flag set.",
			Buckets: prometheus.DefBuckets,
		}),

		UpdateStateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flagkit_update_state_total",
			Help: "Total number of update_state calls, by outcome.",
		}, []string{"outcome"}),

		SnapshotGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flagkit_snapshot_generation",
			Help: "Generation number of the currently published snapshot.",
		}),

		FlagsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flagkit_flags_loaded",
			Help: "Number of flags in the currently published snapshot.",
		}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flagkit_evaluations_total",
			Help: "Total number of flag evaluations, by reason.",
		}, []string{"reason"}),

		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flagkit_evaluation_duration_seconds",
			Help:    "Time to resolve a single flag evaluation.",
			Buckets: prometheus.DefBuckets,
		}),

		PreEvaluatedHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagkit_pre_evaluated_hits_total",
			Help: "Evaluations resolved from the pre-evaluated cache without running the interpreter.",
		}),

		PreEvaluatedMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flagkit_pre_evaluated_misses_total",
			Help: "Evaluations that required running the interpreter.",
		}),

		PoolAcquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flagkit_pool_acquire_duration_seconds",
			Help:    "Time spent waiting to acquire a worker from the evaluation pool.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.UpdateStateDuration,
		m.UpdateStateTotal,
		m.SnapshotGeneration,
		m.FlagsLoaded,
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.PreEvaluatedHits,
		m.PreEvaluatedMisses,
		m.PoolAcquireDuration,
	)

	return m
}

// Handler returns an [http.Handler] that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordUpdateState records the outcome and duration of one update_state
// call.
func (m *Metrics) RecordUpdateState(outcome string, duration time.Duration, generation uint64, flagCount int) {
	m.UpdateStateTotal.WithLabelValues(outcome).Inc()
	m.UpdateStateDuration.Observe(duration.Seconds())
	if outcome == "ok" {
		m.SnapshotGeneration.Set(float64(generation))
		m.FlagsLoaded.Set(float64(flagCount))
	}
}

// RecordEvaluation records the reason and duration of one flag evaluation,
// and whether it was served from the pre-evaluated cache.
func (m *Metrics) RecordEvaluation(reason string, duration time.Duration, preEvaluated bool) {
	m.EvaluationsTotal.WithLabelValues(reason).Inc()
	m.EvaluationDuration.Observe(duration.Seconds())
	if preEvaluated {
		m.PreEvaluatedHits.Inc()
	} else {
		m.PreEvaluatedMisses.Inc()
	}
}

// RecordPoolAcquire records how long an evaluation waited for a worker.
func (m *Metrics) RecordPoolAcquire(duration time.Duration) {
	m.PoolAcquireDuration.Observe(duration.Seconds())
}
