package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

// Error codes that do not originate in the registry.
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeStreamUnsupported = "STREAM_UNSUPPORTED"
)

// writeError aborts the request with a JSON [ErrorResponse].
func writeError(c *gin.Context, statusCode int, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: c.GetString(requestIDKey),
		Timestamp: time.Now().UTC(),
	})
}

// httpStatusFor maps a registry error code to an HTTP status.
func httpStatusFor(code registry.Code) int {
	switch code {
	case registry.CodeNotFound:
		return http.StatusNotFound
	case registry.CodeFailedPrecondition, registry.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeRegistryError translates a registry failure into an HTTP response.
// Internal failures are logged and reported without their cause.
func (s *Server) writeRegistryError(c *gin.Context, err error) {
	var re *registry.Error
	if !errors.As(err, &re) {
		s.logger.Error("unclassified registry error", "error", err, "request_id", c.GetString(requestIDKey))
		writeError(c, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", nil)
		return
	}

	status := httpStatusFor(re.Code)
	if status == http.StatusInternalServerError {
		s.logger.Error("registry internal error", "error", err, "request_id", c.GetString(requestIDKey))
		writeError(c, status, string(re.Code), "Internal server error", nil)
		return
	}

	writeError(c, status, string(re.Code), re.Message, re.Context)
}
