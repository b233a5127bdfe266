package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
	changes        *prom.CounterVec
	artifactOps    *prom.CounterVec
	recordFailures *prom.CounterVec
	lastBuild      prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "catalogbuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "catalogbuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "catalogbuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.changes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "catalogbuilder",
			Name:      "record_changes_total",
			Help:      "Classified records by change kind",
		}, []string{"kind"})
		pr.artifactOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "catalogbuilder",
			Name:      "artifact_operations_total",
			Help:      "Filesystem operations on the catalog tree",
		}, []string{"op"})
		pr.recordFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "catalogbuilder",
			Name:      "record_failures_total",
			Help:      "Per-record failures by outcome",
		}, []string{"outcome"})
		pr.lastBuild = prom.NewGauge(prom.GaugeOpts{
			Namespace: "catalogbuilder",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last build finished",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.changes, pr.artifactOps, pr.recordFailures, pr.lastBuild)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

// WriteToTextfile writes the registry in the Prometheus text format. The file
// is replaced atomically.
func (p *PrometheusRecorder) WriteToTextfile(filename string) error {
	return prom.WriteToTextfile(filename, p.registry)
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
	p.lastBuild.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddChanges(kind string, n int) {
	if p == nil || p.changes == nil || n <= 0 {
		return
	}
	p.changes.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) AddArtifactOps(op string, n int) {
	if p == nil || p.artifactOps == nil || n <= 0 {
		return
	}
	p.artifactOps.WithLabelValues(op).Add(float64(n))
}

func (p *PrometheusRecorder) IncRecordFailure(outcome string) {
	if p == nil || p.recordFailures == nil {
		return
	}
	p.recordFailures.WithLabelValues(outcome).Inc()
}
