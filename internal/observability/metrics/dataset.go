// Package metrics provides Prometheus collectors for imagelab components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatasetMetrics tracks training image and label operations.
type DatasetMetrics struct {
	ImagesSaved     *prometheus.CounterVec
	ImagesDeleted   *prometheus.CounterVec
	ImageBytes      *prometheus.CounterVec
	LabelOperations *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	ScanDuration    prometheus.Histogram

	registry *prometheus.Registry
}

// NewDatasetMetrics creates and registers dataset metrics.
func NewDatasetMetrics(registry *prometheus.Registry) (*DatasetMetrics, error) {
	m := &DatasetMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register dataset metrics: %w", err)
	}
	return m, nil
}

func (m *DatasetMetrics) initMetrics() {
	m.ImagesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_dataset_images_saved_total",
			Help: "Total number of training images saved, partitioned by model.",
		},
		[]string{"model"},
	)
	m.ImagesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_dataset_images_deleted_total",
			Help: "Total number of training images deleted, partitioned by model.",
		},
		[]string{"model"},
	)
	m.ImageBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_dataset_image_bytes_total",
			Help: "Total encoded bytes written for training images.",
		},
		[]string{"model"},
	)
	m.LabelOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_dataset_label_operations_total",
			Help: "Total number of label create and delete operations.",
		},
		[]string{"operation"},
	)
	m.OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelab_dataset_errors_total",
			Help: "Total number of failed dataset operations by category.",
		},
		[]string{"operation", "category"},
	)
	m.ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imagelab_dataset_scan_duration_seconds",
			Help:    "Time taken to scan a model's image tree.",
			Buckets: durationBuckets,
		},
	)
}

// RecordImageSaved counts one saved image of size bytes.
func (m *DatasetMetrics) RecordImageSaved(model string, size int) {
	if m == nil {
		return
	}
	m.ImagesSaved.WithLabelValues(model).Inc()
	m.ImageBytes.WithLabelValues(model).Add(float64(size))
}

// RecordImageDeleted counts one deleted image.
func (m *DatasetMetrics) RecordImageDeleted(model string) {
	if m == nil {
		return
	}
	m.ImagesDeleted.WithLabelValues(model).Inc()
}

// RecordLabelOperation counts a label create or delete.
func (m *DatasetMetrics) RecordLabelOperation(operation string) {
	if m == nil {
		return
	}
	m.LabelOperations.WithLabelValues(operation).Inc()
}

// RecordError counts a failed operation.
func (m *DatasetMetrics) RecordError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.OperationErrors.WithLabelValues(operation, categorizeError(err)).Inc()
}

// ObserveScan records how long a full image scan took.
func (m *DatasetMetrics) ObserveScan(seconds float64) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *DatasetMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ImagesSaved.Describe(ch)
	m.ImagesDeleted.Describe(ch)
	m.ImageBytes.Describe(ch)
	m.LabelOperations.Describe(ch)
	m.OperationErrors.Describe(ch)
	m.ScanDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DatasetMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ImagesSaved.Collect(ch)
	m.ImagesDeleted.Collect(ch)
	m.ImageBytes.Collect(ch)
	m.LabelOperations.Collect(ch)
	m.OperationErrors.Collect(ch)
	m.ScanDuration.Collect(ch)
}
