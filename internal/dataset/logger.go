package dataset

import (
	"sync"

	"github.com/tphakala/imagelab/internal/logger"
)

var (
	pkgLogger  logger.Logger
	loggerOnce sync.Once
)

// GetLogger returns the dataset package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		pkgLogger = logger.Global().Module("dataset")
	})
	return pkgLogger
}
