package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below zap's DebugLevel.
const TraceLevel = zapcore.DebugLevel - 1

// loggerContextKey is used for context values to avoid collisions
type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID() to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

const traceIDKey = "trace_id"

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger owns the zap cores and hands out module loggers.
type CentralLogger struct {
	config *LoggingConfig
	zap    *zap.Logger
	closer func() error

	mu      sync.RWMutex
	modules map[string]*moduleLogger
}

// NewCentralLogger builds a logger from config. A nil config yields
// console-only output at info level.
func NewCentralLogger(config *LoggingConfig) (*CentralLogger, error) {
	if config == nil {
		config = &LoggingConfig{}
	}
	applyConfigDefaults(config)

	var cores []zapcore.Core
	closer := func() error { return nil }

	if config.Console.Enabled {
		level, err := ParseLevel(config.Console.Level)
		if err != nil {
			return nil, fmt.Errorf("console output: %w", err)
		}
		encCfg := newEncoderConfig()
		var enc zapcore.Encoder
		if config.Console.JSON {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			encCfg.EncodeLevel = traceAwareLevelEncoder(true)
			encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level)))
	}

	if config.FileOutput.Enabled {
		level, err := ParseLevel(config.FileOutput.Level)
		if err != nil {
			return nil, fmt.Errorf("file output: %w", err)
		}
		core, closeFile, err := createRotatingFileCore(config.FileOutput, level)
		if err != nil {
			return nil, fmt.Errorf("file output: %w", err)
		}
		cores = append(cores, core)
		closer = closeFile
	}

	var z *zap.Logger
	if len(cores) == 0 {
		z = zap.NewNop()
	} else {
		z = zap.New(zapcore.NewTee(cores...))
	}

	return newCentralLoggerFromZap(config, z, closer), nil
}

func newCentralLoggerFromZap(config *LoggingConfig, z *zap.Logger, closer func() error) *CentralLogger {
	if config == nil {
		config = &LoggingConfig{}
	}
	applyConfigDefaults(config)
	return &CentralLogger{
		config:  config,
		zap:     z,
		closer:  closer,
		modules: make(map[string]*moduleLogger),
	}
}

// Module returns a logger scoped to name. Loggers are cached per name.
func (cl *CentralLogger) Module(name string) Logger {
	cl.mu.RLock()
	ml, ok := cl.modules[name]
	cl.mu.RUnlock()
	if ok {
		return ml
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if ml, ok := cl.modules[name]; ok {
		return ml
	}
	ml = &moduleLogger{
		central: cl,
		name:    name,
		level:   cl.levelFor(name),
		zap:     cl.zap.With(zap.String("module", name)),
	}
	cl.modules[name] = ml
	return ml
}

// levelFor resolves the most specific module level, walking up dotted
// parents ("models.prefs" → "models") before the default.
func (cl *CentralLogger) levelFor(name string) zapcore.Level {
	for n := name; n != ""; {
		if lvl, ok := cl.config.ModuleLevels[n]; ok {
			if parsed, err := ParseLevel(lvl); err == nil {
				return parsed
			}
		}
		idx := strings.LastIndex(n, ".")
		if idx < 0 {
			break
		}
		n = n[:idx]
	}
	if parsed, err := ParseLevel(cl.config.DefaultLevel); err == nil {
		return parsed
	}
	return zapcore.InfoLevel
}

// Flush syncs the underlying cores.
func (cl *CentralLogger) Flush() error {
	if err := cl.zap.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

// Close flushes and releases the log file, if any.
func (cl *CentralLogger) Close() error {
	flushErr := cl.Flush()
	if err := cl.closer(); err != nil {
		return err
	}
	return flushErr
}

// moduleLogger implements Logger for one module.
type moduleLogger struct {
	central *CentralLogger
	name    string
	level   zapcore.Level
	zap     *zap.Logger
}

func (m *moduleLogger) Module(name string) Logger {
	return m.central.Module(m.name + "." + name)
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(TraceLevel, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(zapcore.DebugLevel, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(zapcore.InfoLevel, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(zapcore.WarnLevel, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(zapcore.ErrorLevel, msg, fields) }

func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	lvl, err := ParseLevel(string(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	m.log(lvl, msg, fields)
}

func (m *moduleLogger) With(fields ...Field) Logger {
	return &moduleLogger{
		central: m.central,
		name:    m.name,
		level:   m.level,
		zap:     m.zap.With(toZapFields(fields)...),
	}
}

func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	traceID := getTraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

func (m *moduleLogger) Flush() error {
	return m.central.Flush()
}

func (m *moduleLogger) log(level zapcore.Level, msg string, fields []Field) {
	if level < m.level {
		return
	}
	if ce := m.zap.Check(level, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

// getTraceIDFromContext extracts trace ID from context.
// Use WithTraceID() to set trace IDs in context.
func getTraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

// ParseLevel converts a level name into a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func newEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = traceAwareLevelEncoder(false)
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// traceAwareLevelEncoder prints TRACE for TraceLevel and defers to zap's
// capital encoders for everything else.
func traceAwareLevelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if l == TraceLevel {
			if color {
				enc.AppendString("\x1b[90mTRACE\x1b[0m")
			} else {
				enc.AppendString("TRACE")
			}
			return
		}
		if color {
			zapcore.CapitalColorLevelEncoder(l, enc)
			return
		}
		zapcore.CapitalLevelEncoder(l, enc)
	}
}

// isIgnorableSyncError reports sync failures on terminals, which zap
// surfaces as EINVAL/ENOTTY on stderr.
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
