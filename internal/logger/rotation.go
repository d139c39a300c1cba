package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// createRotatingFileCore creates a JSON zapcore.Core writing to a
// lumberjack-rotated file. The returned func closes the file.
func createRotatingFileCore(cfg *FileOutput, level zapcore.Level) (zapcore.Core, func() error, error) {
	// Ensure the directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxRotatedFiles,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		zapcore.AddSync(lj),
		zap.NewAtomicLevelAt(level),
	)
	return core, lj.Close, nil
}
