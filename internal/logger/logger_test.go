package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestModuleLoggerAddsModuleField(t *testing.T) {
	t.Parallel()

	cl, logs := NewObservedLogger()
	cl.Module("dataset").Info("Image saved", String("label", "cat"), Int("count", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Image saved", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "dataset", ctx["module"])
	assert.Equal(t, "cat", ctx["label"])
	assert.EqualValues(t, 3, ctx["count"])
}

func TestNestedModuleName(t *testing.T) {
	t.Parallel()

	cl, logs := NewObservedLogger()
	cl.Module("models").Module("prefs").Debug("Selection persisted")

	require.Equal(t, 1, logs.Len())
	v, ok := FieldValue(logs.All()[0], "module")
	require.True(t, ok)
	assert.Equal(t, "models.prefs", v)
}

func TestModuleLevelFiltering(t *testing.T) {
	t.Parallel()

	cl, logs := NewObservedLogger()
	cl.config.DefaultLevel = "trace"
	cl.config.ModuleLevels["models"] = "warn"

	cl.Module("models").Info("dropped")
	cl.Module("models").Module("prefs").Info("dropped too")
	cl.Module("models").Warn("kept")
	cl.Module("dataset").Trace("kept trace")

	msgs := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"kept", "kept trace"}, msgs)
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	cl, logs := NewObservedLogger()
	ctx := WithTraceID(context.Background(), "abc123")
	cl.Module("classifier").WithContext(ctx).Info("Classified")
	cl.Module("classifier").WithContext(context.Background()).Info("No trace")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc123", entries[0].ContextMap()[traceIDKey])
	_, ok := entries[1].ContextMap()[traceIDKey]
	assert.False(t, ok)
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Field{Key: "error", Value: nil}, Error(nil))
	assert.Equal(t, assert.AnError.Error(), Error(assert.AnError).Value)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileOutputWritesJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "test.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path},
	})
	require.NoError(t, err)

	cl.Module("models").Info("Model selected", String("model", "pets"))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Model selected"`)
	assert.Contains(t, string(data), `"module":"models"`)
	assert.Contains(t, string(data), `"model":"pets"`)
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.DefaultLevel)
	assert.True(t, cfg.Console.Enabled)
	assert.False(t, cfg.FileOutput.Enabled)
	assert.Equal(t, DefaultLogPath, cfg.FileOutput.Path)
	assert.Equal(t, DefaultMaxSize, cfg.FileOutput.MaxSize)
	assert.NotNil(t, cfg.ModuleLevels)
}

func TestInvalidConsoleLevel(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Console: &ConsoleOutput{Enabled: true, Level: "chatty"}})
	require.Error(t, err)
}
