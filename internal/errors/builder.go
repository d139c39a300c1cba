package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// packagePath is skipped when walking the stack for component detection.
const packagePath = "github.com/tphakala/imagelab/internal/errors"

// hasActiveReporting is set by SetTelemetryReporter. Without a reporter
// Build never walks the stack.
var hasActiveReporting atomic.Bool

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error. %w is honored.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the package or subsystem raising the error.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the category. Unset, it is inherited from the wrapped error.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context attaches a key and value. Values must not carry personal data.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// ModelContext records the model name and the kind of artifact involved.
func (eb *ErrorBuilder) ModelContext(model, artifactPath string) *ErrorBuilder {
	if model != "" {
		eb.Context("model", model)
	}
	if artifactPath != "" {
		eb.Context("artifact_type", extensionOf(artifactPath))
	}
	return eb
}

// FileContext records the extension and a size class of a file, never
// its path.
func (eb *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	if path != "" {
		eb.Context("file_extension", extensionOf(path))
	}
	if size > 0 {
		eb.Context("file_size_category", sizeClass(size))
	}
	return eb
}

// Timing records the operation and how long it ran before failing.
func (eb *ErrorBuilder) Timing(operation string, d time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", d.Milliseconds())
	return eb
}

// Build creates the error and hands it to the telemetry reporter, if any.
func (eb *ErrorBuilder) Build() *EnhancedError {
	err := eb.err
	if err == nil {
		err = NewStd("unknown error")
	}
	category := eb.category
	if category == "" {
		category = CategoryOf(err)
	}

	ee := &EnhancedError{
		Err:       err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}
	if !hasActiveReporting.Load() {
		return ee
	}

	if ee.component == "" {
		ee.component = detectComponent()
	}
	reportToTelemetry(ee)
	return ee
}

// detectComponent returns the package name of the first caller outside
// this package.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, packagePath+".") {
			if c := componentFromFuncName(frame.Function); c != "" {
				return c
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// componentFromFuncName maps "example.com/x/internal/dataset.(*Organizer).Save"
// to "dataset".
func componentFromFuncName(name string) string {
	last := name[strings.LastIndex(name, "/")+1:]
	if dot := strings.Index(last, "."); dot > 0 {
		return last[:dot]
	}
	return ""
}

func extensionOf(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "none"
	}
	return strings.ToLower(ext)
}

func sizeClass(size int64) string {
	switch {
	case size < 1<<10:
		return "tiny"
	case size < 1<<20:
		return "small"
	case size < 10<<20:
		return "medium"
	case size < 100<<20:
		return "large"
	default:
		return "very-large"
	}
}

// NotFound reports a missing model, label, image or other resource.
func NotFound(kind, name string) *EnhancedError {
	return Newf("%s %q not found", kind, name).
		Category(CategoryNotFound).
		Context("kind", kind).
		Build()
}

// AlreadyExists reports a name collision.
func AlreadyExists(kind, name string) *EnhancedError {
	return Newf("%s %q already exists", kind, name).
		Category(CategoryAlreadyExists).
		Context("kind", kind).
		Build()
}

// FileError wraps a filesystem failure with file context.
func FileError(err error, path string, size int64) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(path, size).
		Build()
}
