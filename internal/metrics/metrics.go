// Package metrics collects Prometheus metrics for a safepush run and writes
// them in text exposition format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run results recorded by RecordRun.
const (
	ResultPublished     = "published"
	ResultNothingToPush = "nothing_to_push"
	ResultDryRun        = "dry_run"
	ResultFailed        = "failed"
)

// Metrics holds the run's Prometheus collectors on a private registry so
// several instances can coexist in one process.
//
// Metrics:
//   - safepush_commits_validated_total - commits that passed every check
//   - safepush_commits_published_total - commits made visible upstream
//   - safepush_failures_total{kind} - run failures by error kind
//   - safepush_build_duration_seconds{outcome} - build command duration
//   - safepush_runs_total{result} - runs by result
//   - safepush_last_run_timestamp_seconds - completion time of the last run
//   - safepush_last_run_info{run_id,strategy} - constant 1 for the last run
//
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	CommitsValidated prometheus.Counter
	CommitsPublished prometheus.Counter
	Failures         *prometheus.CounterVec
	BuildDuration    *prometheus.HistogramVec
	Runs             *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
	LastRunInfo      *prometheus.GaugeVec
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CommitsValidated: factory.NewCounter(prometheus.CounterOpts{
			Name: "safepush_commits_validated_total",
			Help: "Commits that passed build, residue and secret checks",
		}),

		CommitsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "safepush_commits_published_total",
			Help: "Commits made visible on the upstream",
		}),

		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safepush_failures_total",
			Help: "Run failures by error kind",
		}, []string{"kind"}),

		BuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safepush_build_duration_seconds",
			Help:    "Duration of the build command per commit",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
		}, []string{"outcome"}), // "passed" or "failed"

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safepush_runs_total",
			Help: "Runs by result",
		}, []string{"result"}),

		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "safepush_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),

		LastRunInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "safepush_last_run_info",
			Help: "Identity of the last run",
		}, []string{"run_id", "strategy"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordBuild records a build's duration and whether the command passed.
func (m *Metrics) RecordBuild(d time.Duration, passed bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.BuildDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordValidated records a commit that passed validation.
func (m *Metrics) RecordValidated() {
	if m == nil {
		return
	}
	m.CommitsValidated.Inc()
}

// RecordPublished records n commits made visible upstream.
func (m *Metrics) RecordPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CommitsPublished.Add(float64(n))
}

// RecordFailure records a failed run by error kind.
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

// RecordRun records the end of a run.
func (m *Metrics) RecordRun(runID, strategy, result string, at time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	m.LastRunTimestamp.Set(float64(at.Unix()))
	m.LastRunInfo.Reset()
	m.LastRunInfo.WithLabelValues(runID, strategy).Set(1)
}

// WriteTextfile writes the registry to path. The file is written to a
// temporary name and renamed, so collectors never read a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
