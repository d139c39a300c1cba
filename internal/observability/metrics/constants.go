package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/imagelab/internal/errors"
)

// ShutdownTimeout bounds graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second

// Result label values.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// durationBuckets spans 1ms to roughly 65s.
var durationBuckets = prometheus.ExponentialBuckets(0.001, 2, 17)

// trainingBuckets spans 1s to roughly 2.3h.
var trainingBuckets = prometheus.ExponentialBuckets(1, 2, 14)

// categorizeError returns the error category for metric labels.
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	return string(errors.CategoryOf(err))
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
