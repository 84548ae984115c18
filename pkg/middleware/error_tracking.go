package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/errors"
	"github.com/richxcame/parking-lot/pkg/logger"
	"go.uber.org/zap"
)

// SentryMiddleware attaches a per-request Sentry hub
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorHandler reports unexpected request errors and 5xx responses.
// It should be placed after the other middleware in the chain.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		errors.AddBreadcrumbForRequest(c.Request.Method, c.Request.URL.Path, statusCode, duration)

		reported := false
		for _, ginErr := range c.Errors {
			if errors.ShouldReportError(ginErr.Err, statusCode) {
				captureError(c, ginErr.Err, statusCode, duration)
				reported = true
			}
		}

		if statusCode >= http.StatusInternalServerError && !reported {
			hub := hubFor(c)
			hub.Scope().SetLevel(errors.LevelForStatus(statusCode))
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", statusCode, c.Request.Method, c.Request.URL.Path))
		}
	}
}

// RecoveryWithSentry recovers from panics, reports them and answers 500
func RecoveryWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				hub := hubFor(c)
				hub.Scope().SetRequest(c.Request)
				hub.Scope().SetContext("panic", map[string]interface{}{
					"value":      fmt.Sprintf("%v", err),
					"stacktrace": string(debug.Stack()),
				})
				hub.RecoverWithContext(c.Request.Context(), err)
				hub.Flush(2 * time.Second)

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path),
				)

				common.ErrorResponse(c, http.StatusInternalServerError, "an unexpected error occurred")
				c.Abort()
			}
		}()

		c.Next()
	}
}

func hubFor(c *gin.Context) *sentry.Hub {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

func captureError(c *gin.Context, err error, statusCode int, duration time.Duration) {
	hub := hubFor(c)
	hub.Scope().SetRequest(c.Request)
	hub.Scope().SetLevel(errors.LevelForStatus(statusCode))
	hub.Scope().SetTag("http.method", c.Request.Method)
	hub.Scope().SetTag("http.status_code", fmt.Sprintf("%d", statusCode))
	hub.Scope().SetTag("endpoint", c.FullPath())
	if correlationID := GetCorrelationID(c); correlationID != "" {
		hub.Scope().SetTag("correlation_id", correlationID)
	}
	hub.Scope().SetContext("http", map[string]interface{}{
		"method":      c.Request.Method,
		"url":         c.Request.URL.String(),
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"remote_addr": c.ClientIP(),
	})
	hub.CaptureException(err)
}
