package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every EnhancedError built while installed.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// PrivacyScrubber rewrites a message before it is reported.
type PrivacyScrubber func(string) string

var (
	telemetryMu       sync.RWMutex
	telemetryReporter TelemetryReporter
	privacyScrubber   PrivacyScrubber
)

// SetTelemetryReporter installs reporter. Nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	telemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the installed reporter, or nil.
func GetTelemetryReporter() TelemetryReporter {
	telemetryMu.RLock()
	defer telemetryMu.RUnlock()
	return telemetryReporter
}

// SetPrivacyScrubber installs scrubber. Nil restores home directory
// scrubbing only.
func SetPrivacyScrubber(scrubber PrivacyScrubber) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	privacyScrubber = scrubber
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

func scrub(message string) string {
	telemetryMu.RLock()
	s := privacyScrubber
	telemetryMu.RUnlock()
	if s != nil {
		return s(message)
	}
	return basicPathScrub(message)
}

var (
	homePathRegex = regexp.MustCompile(`(/Users|/home)/[^/\s]+`)
	winHomeRegex  = regexp.MustCompile(`(?i)[a-z]:\\Users\\[^\\\s]+`)
)

// basicPathScrub hides the account name in home directory paths.
func basicPathScrub(message string) string {
	message = homePathRegex.ReplaceAllString(message, "$1/[USER]")
	return winHomeRegex.ReplaceAllString(message, `C:\Users\[USER]`)
}

// SentryReporter sends errors to the Sentry hub initialized by the caller.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter returns a reporter for the global Sentry hub.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled implements TelemetryReporter.
func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

// ReportError sends ee once. Message and string context values are scrubbed.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrub(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	title := errorTitle(ee)
	level := levelFor(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", title)
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrub(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// errorTitle joins component, category and operation, for example
// "Classifier External Operation Error Load Model".
func errorTitle(ee *EnhancedError) string {
	var parts []string
	if c := ee.GetComponent(); c != ComponentUnknown {
		parts = append(parts, titleCase(c))
	}
	if t := categoryTitles[ee.Category]; t != "" {
		parts = append(parts, t)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		for w := range strings.FieldsSeq(strings.ReplaceAll(op, "_", " ")) {
			parts = append(parts, titleCase(w))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

var categoryTitles = map[ErrorCategory]string{
	CategoryNotFound:          "Not Found",
	CategoryAlreadyExists:     "Already Exists",
	CategoryValidation:        "Validation Error",
	CategoryConversion:        "Image Conversion Error",
	CategoryExternalOperation: "External Operation Error",
	CategoryFileIO:            "File I/O Error",
	CategoryDatabase:          "Database Error",
	CategoryConfiguration:     "Configuration Error",
	CategoryDiskUsage:         "Disk Space Error",
	CategoryModelLoad:         "Model Loading Error",
	CategoryCancellation:      "Canceled",
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// levelFor treats caller mistakes as info and resource problems as warnings.
func levelFor(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNotFound, CategoryAlreadyExists, CategoryValidation, CategoryCancellation:
		return sentry.LevelInfo
	case CategoryConversion, CategoryFileIO, CategoryDiskUsage:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
