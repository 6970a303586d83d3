package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analytics engine.
type Metrics struct {
	ReportsGenerated *prometheus.CounterVec // labels: outcome={success,empty_range,fetch_error,invalid}
	ReportDuration   prometheus.Histogram
	RangeTruncated   prometheus.Counter

	// Telemetry volume per report.
	RecordsFetched         prometheus.Histogram
	RecordsInRange         prometheus.Histogram
	NormalizationFallbacks *prometheus.CounterVec // labels: field={timestamp,temperature,precipitation,radiation,wind}

	// Narrative generation metrics.
	NarrativeRequests    *prometheus.CounterVec // labels: kind={report,chat}, outcome={success,error,disabled}
	NarrativeCache       *prometheus.CounterVec // labels: result={hit,miss}
	NarrativeAPIDuration prometheus.Histogram
	NarrativeEnabled     prometheus.Gauge
}

const namespace = "agro"

var recordBuckets = []float64{0, 24, 48, 96, 168, 336, 720, 1000, 2000, 5000}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Report requests by outcome.",
		}, []string{"outcome"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "End-to-end report generation duration, narrative included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RangeTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_truncated_total",
			Help:      "Reports whose candidate pool may not cover the requested range.",
		}),
		RecordsFetched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_fetched",
			Help:      "Raw telemetry records fetched per report.",
			Buckets:   recordBuckets,
		}),
		RecordsInRange: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_in_range",
			Help:      "Normalized records inside the requested range per report.",
			Buckets:   recordBuckets,
		}),
		NormalizationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_fallbacks_total",
			Help:      "Raw fields replaced by defaults during normalization.",
		}, []string{"field"}),
		NarrativeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrative_requests_total",
			Help:      "Narrative generation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		NarrativeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrative_cache_total",
			Help:      "Narrative cache lookups by result.",
		}, []string{"result"}),
		NarrativeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narrative_api_duration_seconds",
			Help:      "Text generation API request duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		NarrativeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "narrative_enabled",
			Help:      "1 when narrative generation is configured, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsGenerated,
		m.ReportDuration,
		m.RangeTruncated,
		m.RecordsFetched,
		m.RecordsInRange,
		m.NormalizationFallbacks,
		m.NarrativeRequests,
		m.NarrativeCache,
		m.NarrativeAPIDuration,
		m.NarrativeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsGenerated:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "reports_generated_total"}, []string{"outcome"}),
		ReportDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "report_duration_seconds"}),
		RangeTruncated:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "range_truncated_total"}),
		RecordsFetched:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "records_fetched"}),
		RecordsInRange:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "records_in_range"}),
		NormalizationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "normalization_fallbacks_total"}, []string{"field"}),
		NarrativeRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "narrative_requests_total"}, []string{"kind", "outcome"}),
		NarrativeCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "narrative_cache_total"}, []string{"result"}),
		NarrativeAPIDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "narrative_api_duration_seconds"}),
		NarrativeEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "narrative_enabled"}),
	}
}
