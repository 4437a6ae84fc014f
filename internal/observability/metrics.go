package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solar_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	DocumentsConsumed prometheus.Counter
	RowsProduced      prometheus.Counter
	TransformErrors   prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Label and encoding metrics.
	LabelOutcomes    *prometheus.CounterVec // labels: outcome={labeled,masked,null,negative,clamped}
	UnseenCategories prometheus.Counter
	VocabularySize   prometheus.Gauge

	// Forecast serving metrics.
	ForecastRequests   *prometheus.CounterVec   // labels: outcome={success,invalid,error}
	ScoringRequests    *prometheus.CounterVec   // labels: outcome={success,error,open}
	ScoringCache       *prometheus.CounterVec   // labels: result={hit,miss}
	ScoringAPIDuration prometheus.Histogram
	ScoringEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DocumentsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_consumed_total",
			Help:      "Total raw weather documents read from the source topic.",
		}),
		RowsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_rows_produced_total",
			Help:      "Total feature rows written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total documents rejected by decoding or normalization.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of documents per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LabelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "label_outcomes_total",
			Help:      "Synthetic label results by outcome.",
		}, []string{"outcome"}),
		UnseenCategories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unseen_weather_categories_total",
			Help:      "Rows whose weather description is outside the frozen vocabulary.",
		}),
		VocabularySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_size",
			Help:      "Number of one-hot weather columns in the loaded vocabulary.",
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Forecast API requests by outcome.",
		}, []string{"outcome"}),
		ScoringRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Remote scoring requests by outcome.",
		}, []string{"outcome"}),
		ScoringCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_cache_total",
			Help:      "Scoring cache lookups by result.",
		}, []string{"result"}),
		ScoringAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_api_duration_seconds",
			Help:      "Remote scoring request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ScoringEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scoring_enabled",
			Help:      "1 when the remote scoring endpoint serves forecasts, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.DocumentsConsumed,
		m.RowsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.LabelOutcomes,
		m.UnseenCategories,
		m.VocabularySize,
		m.ForecastRequests,
		m.ScoringRequests,
		m.ScoringCache,
		m.ScoringAPIDuration,
		m.ScoringEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DocumentsConsumed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "documents_consumed_total"}),
		RowsProduced:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "feature_rows_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		LabelOutcomes:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "label_outcomes_total"}, []string{"outcome"}),
		UnseenCategories:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "unseen_weather_categories_total"}),
		VocabularySize:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "vocabulary_size"}),
		ForecastRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "forecast_requests_total"}, []string{"outcome"}),
		ScoringRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "scoring_requests_total"}, []string{"outcome"}),
		ScoringCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "scoring_cache_total"}, []string{"result"}),
		ScoringAPIDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "scoring_api_duration_seconds"}),
		ScoringEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "scoring_enabled"}),
	}
}

// ObserveLabelStats adds one batch of label counters.
func (m *Metrics) ObserveLabelStats(labeled, masked, null, negative, clamped int) {
	m.LabelOutcomes.WithLabelValues("labeled").Add(float64(labeled))
	m.LabelOutcomes.WithLabelValues("masked").Add(float64(masked))
	m.LabelOutcomes.WithLabelValues("null").Add(float64(null))
	m.LabelOutcomes.WithLabelValues("negative").Add(float64(negative))
	m.LabelOutcomes.WithLabelValues("clamped").Add(float64(clamped))
}
