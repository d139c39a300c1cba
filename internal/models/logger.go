package models

import (
	"sync"

	"github.com/tphakala/imagelab/internal/logger"
)

var (
	pkgLogger  logger.Logger
	loggerOnce sync.Once
)

// GetLogger returns the models package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		pkgLogger = logger.Global().Module("models")
	})
	return pkgLogger
}
