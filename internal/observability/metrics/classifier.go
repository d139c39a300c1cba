package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ClassifierMetrics tracks validation, training and inference.
type ClassifierMetrics struct {
	ValidationFailures *prometheus.CounterVec
	TrainingTotal      *prometheus.CounterVec
	TrainingDuration   prometheus.Histogram
	ClassifyTotal      *prometheus.CounterVec
	ClassifyErrors     *prometheus.CounterVec
	ClassifyDuration   *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	ModelLoads         *prometheus.CounterVec
	CachedModels       prometheus.Gauge

	registry *prometheus.Registry
}

// NewClassifierMetrics creates and registers classifier metrics.
func NewClassifierMetrics(registry *prometheus.Registry) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register classifier metrics: %w", err)
	}
	return m, nil
}

func (m *ClassifierMetrics) initMetrics() {
	m.ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_validation_failures_total",
			Help: "Total number of rejected training directories by reason.",
		},
		[]string{"reason"},
	)
	m.TrainingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_training_runs_total",
			Help: "Total number of training runs by result.",
		},
		[]string{"result"},
	)
	m.TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imagelab_training_duration_seconds",
			Help:    "Wall time of successful training runs.",
			Buckets: trainingBuckets,
		},
	)
	m.ClassifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_classifications_total",
			Help: "Total number of classifications by model and result.",
		},
		[]string{"model", "result"},
	)
	m.ClassifyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_classification_errors_total",
			Help: "Total number of failed classifications by error category.",
		},
		[]string{"category"},
	)
	m.ClassifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelab_classification_duration_seconds",
			Help:    "Time taken to classify one image, including model load.",
			Buckets: durationBuckets,
		},
		[]string{"model"},
	)
	m.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelab_model_cache_hits_total",
			Help: "Loaded model cache hits.",
		},
	)
	m.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelab_model_cache_misses_total",
			Help: "Loaded model cache misses.",
		},
	)
	m.ModelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_model_loads_total",
			Help: "Total number of model loads by result.",
		},
		[]string{"result"},
	)
	m.CachedModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagelab_model_cache_entries",
			Help: "Number of loaded models held in the cache.",
		},
	)
}

// RecordValidationFailure counts a rejected training directory.
func (m *ClassifierMetrics) RecordValidationFailure(reason string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(reason).Inc()
}

// RecordTraining records a training run.
func (m *ClassifierMetrics) RecordTraining(seconds float64, err error) {
	if m == nil {
		return
	}
	m.TrainingTotal.WithLabelValues(resultOf(err)).Inc()
	if err == nil {
		m.TrainingDuration.Observe(seconds)
	}
}

// RecordClassification records one classification.
func (m *ClassifierMetrics) RecordClassification(model string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.ClassifyTotal.WithLabelValues(model, resultOf(err)).Inc()
	if err != nil {
		m.ClassifyErrors.WithLabelValues(categorizeError(err)).Inc()
		return
	}
	m.ClassifyDuration.WithLabelValues(model).Observe(seconds)
}

// RecordCacheHit counts a cache hit.
func (m *ClassifierMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss counts a cache miss.
func (m *ClassifierMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordModelLoad counts a model load.
func (m *ClassifierMetrics) RecordModelLoad(err error) {
	if m == nil {
		return
	}
	m.ModelLoads.WithLabelValues(resultOf(err)).Inc()
}

// SetCachedModels sets the cache size gauge.
func (m *ClassifierMetrics) SetCachedModels(n int) {
	if m == nil {
		return
	}
	m.CachedModels.Set(float64(n))
}

// Describe implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ValidationFailures.Describe(ch)
	m.TrainingTotal.Describe(ch)
	m.TrainingDuration.Describe(ch)
	m.ClassifyTotal.Describe(ch)
	m.ClassifyErrors.Describe(ch)
	m.ClassifyDuration.Describe(ch)
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
	m.ModelLoads.Describe(ch)
	m.CachedModels.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ValidationFailures.Collect(ch)
	m.TrainingTotal.Collect(ch)
	m.TrainingDuration.Collect(ch)
	m.ClassifyTotal.Collect(ch)
	m.ClassifyErrors.Collect(ch)
	m.ClassifyDuration.Collect(ch)
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
	m.ModelLoads.Collect(ch)
	m.CachedModels.Collect(ch)
}
