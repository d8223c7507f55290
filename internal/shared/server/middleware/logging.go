package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
)

const logFieldsKey = "logFields"

// Annotate adds a field to this request's request.complete log line.
func Annotate(c *gin.Context, key string, value any) {
	fields, _ := c.Get(logFieldsKey)
	m, ok := fields.(map[string]any)
	if !ok {
		m = map[string]any{}
		c.Set(logFieldsKey, m)
	}
	m[key] = value
}

// Logging emits one request.complete line per request. Server errors log at
// error level and client errors at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
		metrics.ObserveHTTPRequest(status, elapsedMs)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": elapsedMs,
			"user_id":     UserIDFromContext(c),
			"is_guest":    IsGuestFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		if extra, ok := c.Get(logFieldsKey); ok {
			for k, v := range extra.(map[string]any) {
				fields[k] = v
			}
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
