// Package telemetry installs optional Sentry error reporting for enhanced
// errors.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/imagelab/internal/conf"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/privacy"
)

// flushTimeout bounds how long Shutdown waits for queued events.
const flushTimeout = 2 * time.Second

// Options holds what Init needs beyond the settings.
type Options struct {
	Release string
	// Roots are directories replaced with [ROOT] in reported messages.
	Roots []string
	// Transport replaces the HTTP transport, used by tests.
	Transport sentry.Transport
}

// Init configures Sentry and installs it as the error reporter when
// telemetry is enabled and a DSN is set. The returned function flushes
// pending events and uninstalls the reporter; it is never nil.
func Init(settings conf.TelemetrySettings, opts Options, log logger.Logger) (func(), error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if !settings.Enabled || settings.DSN == "" {
		log.Debug("Error telemetry disabled")
		return func() {}, nil
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}
	release := opts.Release
	if release == "" {
		release = "imagelab@dev"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          release,
		Transport:        opts.Transport,
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return func() {}, errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	errors.SetPrivacyScrubber(privacy.NewScrubber(opts.Roots...).Scrub)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("Error telemetry enabled", logger.String("environment", environment))

	return func() {
		errors.SetTelemetryReporter(nil)
		errors.SetPrivacyScrubber(nil)
		sentry.Flush(flushTimeout)
	}, nil
}

// beforeSend strips host and user identifying data from every event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
