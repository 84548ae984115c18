package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds configuration for Sentry integration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	ServerName       string
	SampleRate       float64
	AttachStacktrace bool
}

// DefaultSentryConfig returns the configuration used by the parking service
func DefaultSentryConfig(dsn, environment, release, serverName string) *SentryConfig {
	return &SentryConfig{
		DSN:              dsn,
		Environment:      environment,
		Release:          release,
		ServerName:       serverName,
		SampleRate:       1.0,
		AttachStacktrace: true,
	}
}

// ErrSentryDisabled is returned by InitSentry when no DSN is configured
var ErrSentryDisabled = errors.New("sentry DSN is not configured")

// InitSentry initializes the Sentry SDK with the given configuration
func InitSentry(config *SentryConfig) error {
	if config.DSN == "" {
		return ErrSentryDisabled
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		SampleRate:       config.SampleRate,
		ServerName:       config.ServerName,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
				return nil
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// Flush flushes the Sentry buffer
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// AddBreadcrumbForRequest adds a breadcrumb for HTTP request
func AddBreadcrumbForRequest(method, url string, statusCode int, duration time.Duration) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "http",
		Category:  "http.request",
		Level:     sentry.LevelInfo,
		Message:   fmt.Sprintf("%s %s", method, url),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"method":      method,
			"url":         url,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// ShouldReportError decides whether a failed request is worth an event.
// Client errors are expected outcomes (duplicate plate, unknown vehicle).
func ShouldReportError(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	if statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError {
		return false
	}
	return true
}

// LevelForStatus maps HTTP status codes to Sentry severity levels
func LevelForStatus(statusCode int) sentry.Level {
	switch {
	case statusCode >= 500:
		return sentry.LevelError
	case statusCode == http.StatusTooManyRequests:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
