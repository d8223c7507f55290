// Package respond writes the JSON bodies and error envelope shared by every
// handler.
package respond

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/shared/telemetry"
)

// ErrorBody is the single error shape every endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func JSON(c *gin.Context, status int, payload any) { c.JSON(status, payload) }
func OK(c *gin.Context, payload any)               { c.JSON(http.StatusOK, payload) }
func Created(c *gin.Context, payload any)          { c.JSON(http.StatusCreated, payload) }
func NoContent(c *gin.Context)                     { c.Status(http.StatusNoContent) }

// Attachment sends a generated file for download under fileName.
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, contentType, data)
}

// Error aborts with the envelope and logs http.error, at warn for 4xx and
// error for 5xx.
func Error(c *gin.Context, status int, code, message string, details any) {
	abort(c, status, ErrorBody{Code: code, Message: message, Details: details}, nil)
}

// Internal answers 500 with a generic message. The cause is logged, never
// sent to the client.
func Internal(c *gin.Context, message string, cause error) {
	abort(c, http.StatusInternalServerError, ErrorBody{Code: "internal_error", Message: message}, cause)
}

func abort(c *gin.Context, status int, body ErrorBody, cause error) {
	fields := map[string]any{
		"status":     status,
		"code":       body.Code,
		"message":    body.Message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": telemetry.RequestID(c.Request.Context()),
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}
