package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// requestIDKey is the gin context key holding the request id.
const requestIDKey = "request_id"

// requestIDMiddleware reuses a valid X-Request-Id header or generates a new
// UUID, stores it on the context and echoes it back.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Next()
	}
}

// recoveryMiddleware converts handler panics into a 500 response.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				panicRecoveries.Inc()
				var errMsg string
				switch v := rec.(type) {
				case error:
					errMsg = v.Error()
				default:
					errMsg = fmt.Sprintf("%v", v)
				}
				s.logger.Error("panic recovered",
					"error", errMsg,
					"request_id", c.GetString(requestIDKey),
					"route", routeLabel(c),
					"method", c.Request.Method,
				)
				writeError(c, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", nil)
			}
		}()
		c.Next()
	}
}

// rateLimitMiddleware rejects requests once the shared token bucket is empty.
// A nil limiter disables rate limiting.
func (s *Server) rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			rateLimitRejects.Inc()
			c.Header("Retry-After", "1")
			writeError(c, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Rate limit exceeded",
				map[string]any{
					"limit": float64(limiter.Limit()),
					"burst": limiter.Burst(),
				})
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", int(limiter.Limit())))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int(limiter.Tokens())))
		c.Next()
	}
}

// loggingMiddleware logs one line per request. Successful requests log at
// debug level, server errors at error level.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", routeLabel(c),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			s.logger.Info("request rejected", attrs...)
		default:
			s.logger.Debug("request completed", attrs...)
		}
	}
}
