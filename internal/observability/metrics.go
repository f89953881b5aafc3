package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "faadb"

// Metrics holds the Prometheus counters, histograms, and gauges for a harvest run.
type Metrics struct {
	RecordsParsed *prometheus.CounterVec // labels: family={airport,navaid,fix,obstacle}
	LinesDropped  *prometheus.CounterVec // labels: family, reason
	StageFailures *prometheus.CounterVec // labels: stage
	FailsafeHolds *prometheus.CounterVec // labels: artifact

	NoticesHarvested prometheus.Counter
	NoticesMatched   prometheus.Counter
	ArtifactsWritten prometheus.Counter

	DownloadBytes    prometheus.Counter
	DownloadDuration *prometheus.HistogramVec // labels: kind={page,archive,notices}
	RunDuration      prometheus.Histogram
	LastSuccess      prometheus.Gauge
	PipelineRunning  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// Gatherer returns the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RecordsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      help("Records normalized, by source family."),
		}, []string{"family"}),
		LinesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      help("Source lines discarded during normalization, by family and reason."),
		}, []string{"family", "reason"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      help("Harvest stages that ended in error."),
		}, []string{"stage"}),
		FailsafeHolds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failsafe_holds_total",
			Help:      help("Artifacts left untouched because the run produced no records."),
		}, []string{"artifact"}),
		NoticesHarvested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_harvested_total",
			Help:      help("Obstruction notices returned by the notice service."),
		}),
		NoticesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_matched_total",
			Help:      help("Notices classified as unlit obstacles and persisted."),
		}),
		ArtifactsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      help("Dataset files written to the output directory."),
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      help("Bytes received from the publisher."),
		}),
		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      help("Duration of publisher requests."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete harvest run."),
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last run that persisted at least one artifact."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a harvest run is active, 0 otherwise."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsParsed,
		m.LinesDropped,
		m.StageFailures,
		m.FailsafeHolds,
		m.NoticesHarvested,
		m.NoticesMatched,
		m.ArtifactsWritten,
		m.DownloadBytes,
		m.DownloadDuration,
		m.RunDuration,
		m.LastSuccess,
		m.PipelineRunning,
	}
}
