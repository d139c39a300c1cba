package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func nopZap() *zap.Logger { return zap.NewNop() }

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return newCentralLoggerFromZap(nil, nopZap(), func() error { return nil }).Module("nop")
}

// NewObservedLogger returns a trace-level CentralLogger whose entries are
// captured in memory for assertions.
func NewObservedLogger() (*CentralLogger, *observer.ObservedLogs) {
	core, logs := observer.New(TraceLevel)
	cl := newCentralLoggerFromZap(&LoggingConfig{DefaultLevel: "trace"}, zap.New(core), func() error { return nil })
	return cl, logs
}

// FieldValue looks up a context field on an observed entry.
func FieldValue(entry observer.LoggedEntry, key string) (any, bool) {
	v, ok := entry.ContextMap()[key]
	return v, ok
}
