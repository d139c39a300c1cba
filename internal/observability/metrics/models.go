package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ModelMetrics tracks model lifecycle operations.
type ModelMetrics struct {
	Operations      *prometheus.CounterVec
	Installs        *prometheus.CounterVec
	Compilations    *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	ModelsTotal     *prometheus.GaugeVec
	SelectionFalls  prometheus.Counter

	registry *prometheus.Registry
}

// NewModelMetrics creates and registers model lifecycle metrics.
func NewModelMetrics(registry *prometheus.Registry) (*ModelMetrics, error) {
	m := &ModelMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register model metrics: %w", err)
	}
	return m, nil
}

func (m *ModelMetrics) initMetrics() {
	m.Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_models_operations_total",
			Help: "Total number of model lifecycle operations by result.",
		},
		[]string{"operation", "result"},
	)
	m.Installs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_models_installs_total",
			Help: "Total number of installed artifacts by source.",
		},
		[]string{"source"},
	)
	m.Compilations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_models_compilations_total",
			Help: "Total number of artifact compilations by result.",
		},
		[]string{"result"},
	)
	m.CompileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imagelab_models_compile_duration_seconds",
			Help:    "Time taken to compile a training artifact.",
			Buckets: durationBuckets,
		},
	)
	m.ModelsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imagelab_models",
			Help: "Number of models on disk by status, as of the last listing.",
		},
		[]string{"status"},
	)
	m.SelectionFalls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelab_models_selection_fallbacks_total",
			Help: "Times the selected model was missing and another was chosen.",
		},
	)
}

// RecordOperation counts a lifecycle operation.
func (m *ModelMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, resultOf(err)).Inc()
}

// RecordInstall counts an installed artifact.
func (m *ModelMetrics) RecordInstall(source string) {
	if m == nil {
		return
	}
	m.Installs.WithLabelValues(source).Inc()
}

// RecordCompile records a compilation and its duration.
func (m *ModelMetrics) RecordCompile(seconds float64, err error) {
	if m == nil {
		return
	}
	m.Compilations.WithLabelValues(resultOf(err)).Inc()
	if err == nil {
		m.CompileDuration.Observe(seconds)
	}
}

// SetModelCounts updates the per-status model gauge.
func (m *ModelMetrics) SetModelCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.ModelsTotal.Reset()
	for status, n := range counts {
		m.ModelsTotal.WithLabelValues(status).Set(float64(n))
	}
}

// RecordSelectionFallback counts a fallback to another loadable model.
func (m *ModelMetrics) RecordSelectionFallback() {
	if m == nil {
		return
	}
	m.SelectionFalls.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ModelMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.Installs.Describe(ch)
	m.Compilations.Describe(ch)
	m.CompileDuration.Describe(ch)
	m.ModelsTotal.Describe(ch)
	m.SelectionFalls.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ModelMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.Installs.Collect(ch)
	m.Compilations.Collect(ch)
	m.CompileDuration.Collect(ch)
	m.ModelsTotal.Collect(ch)
	m.SelectionFalls.Collect(ch)
}
