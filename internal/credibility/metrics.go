package credibility

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricAnalysesTotal     = "credibility_analyses_total"
	MetricAnalysisErrors    = "credibility_analysis_errors_total"
	MetricAnalysisDuration  = "credibility_analysis_duration_seconds"
	MetricScorerFailures    = "credibility_scorer_failures_total"
	MetricScoreDistribution = "credibility_total_score"
	MetricRedFlagsPerReport = "credibility_red_flags_per_report"
	MetricLastAnalysisUnix  = "credibility_last_analysis_timestamp"
)

// Metrics contains Prometheus metrics for credibility analysis.
// All operations are thread-safe.
type Metrics struct {
	analysesTotal     prometheus.Counter
	analysisErrors    prometheus.Counter
	analysisDuration  prometheus.Histogram
	scorerFailures    *prometheus.CounterVec
	scoreDistribution prometheus.Histogram
	redFlagsPerReport prometheus.Histogram
	lastAnalysisUnix  prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		analysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricAnalysesTotal,
			Help: "Total number of completed credibility analyses",
		}),
		analysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricAnalysisErrors,
			Help: "Total number of credibility analyses that failed outright",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricAnalysisDuration,
			Help:    "Histogram of full analysis duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		scorerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricScorerFailures,
			Help: "Total number of isolated scorer failures by strategy",
		}, []string{"strategy"}),
		scoreDistribution: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricScoreDistribution,
			Help:    "Distribution of total credibility scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		redFlagsPerReport: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRedFlagsPerReport,
			Help:    "Distribution of red flag counts per report",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		}),
		lastAnalysisUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastAnalysisUnix,
			Help: "Unix timestamp of the last completed analysis",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncAnalysesTotal increments the completed analysis counter.
func (m *Metrics) IncAnalysesTotal() {
	m.analysesTotal.Inc()
}

// IncAnalysisErrors increments the failed analysis counter.
func (m *Metrics) IncAnalysisErrors() {
	m.analysisErrors.Inc()
}

// ObserveAnalysisDuration records a full analysis duration sample.
func (m *Metrics) ObserveAnalysisDuration(seconds float64) {
	m.analysisDuration.Observe(seconds)
}

// IncScorerFailure increments the isolated failure counter for a strategy.
func (m *Metrics) IncScorerFailure(strategy string) {
	m.scorerFailures.WithLabelValues(strategy).Inc()
}

// ObserveTotalScore records a total score sample.
func (m *Metrics) ObserveTotalScore(score float64) {
	m.scoreDistribution.Observe(score)
}

// ObserveRedFlagCount records the number of red flags on a report.
func (m *Metrics) ObserveRedFlagCount(count float64) {
	m.redFlagsPerReport.Observe(count)
}

// SetLastAnalysisTimestamp sets the last analysis timestamp gauge.
func (m *Metrics) SetLastAnalysisTimestamp(timestamp float64) {
	m.lastAnalysisUnix.Set(timestamp)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.analysesTotal,
		m.analysisErrors,
		m.analysisDuration,
		m.scorerFailures,
		m.scoreDistribution,
		m.redFlagsPerReport,
		m.lastAnalysisUnix,
	}
}
