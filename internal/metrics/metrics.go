// Package metrics records per-run crawl metrics in a Prometheus registry.
//
// The crawler is a batch job, so metrics are not served over HTTP. After a
// run the registry is written in text exposition format for the node
// exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clt_events"

// Pipeline stages reported by the events gauge
const (
	StageRaw          = "raw"
	StageNormalized   = "normalized"
	StageDeduplicated = "deduplicated"
	StageRanked       = "ranked"
	StageNew          = "new"
)

// Recorder holds the metrics of one run
type Recorder struct {
	registry *prometheus.Registry

	sourceCandidates *prometheus.GaugeVec
	sourceFailures   *prometheus.CounterVec
	sourceDuration   *prometheus.GaugeVec
	pipelineEvents   *prometheus.GaugeVec
	filtered         *prometheus.CounterVec
	runDuration      prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

// New creates a Recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceCandidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_candidates",
			Help:      "Raw candidates returned by each source in the last run.",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources that failed to fetch or parse.",
		}, []string{"source"}),
		sourceDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_fetch_seconds",
			Help:      "Wall time spent fetching and parsing each source.",
		}, []string{"source"}),
		pipelineEvents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_events",
			Help:      "Events remaining after each pipeline stage.",
		}, []string{"stage"}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filtered_total",
			Help:      "Events removed by the filter, by reason.",
		}, []string{"reason"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last run finished writing output.",
		}),
	}

	r.registry.MustRegister(
		r.sourceCandidates,
		r.sourceFailures,
		r.sourceDuration,
		r.pipelineEvents,
		r.filtered,
		r.runDuration,
		r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSource records one source's outcome
func (r *Recorder) ObserveSource(source string, candidates int, d time.Duration, err error) {
	r.sourceCandidates.WithLabelValues(source).Set(float64(candidates))
	r.sourceDuration.WithLabelValues(source).Set(d.Seconds())
	if err != nil {
		r.sourceFailures.WithLabelValues(source).Inc()
	}
}

// SetStage records how many events a stage produced
func (r *Recorder) SetStage(stage string, n int) {
	r.pipelineEvents.WithLabelValues(stage).Set(float64(n))
}

// AddFiltered counts events removed for reason
func (r *Recorder) AddFiltered(reason string, n int) {
	r.filtered.WithLabelValues(reason).Add(float64(n))
}

// Finish records the run duration and success time
func (r *Recorder) Finish(d time.Duration, at time.Time) {
	r.runDuration.Set(d.Seconds())
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path in text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
