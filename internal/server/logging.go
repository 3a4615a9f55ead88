package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"gymflow/internal/apperr"
	"gymflow/internal/auth"
	"gymflow/internal/logger"
)

// RequestLoggingMiddleware logs one structured line per request. Server
// errors log at error level, client errors at warn.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id, ok := auth.GetIdentity(c); ok {
			args = append(args, "user_id", id.UserID, "gym_id", id.GymID)
		}
		args = append(args, errorFields(c)...)

		switch {
		case status >= 500:
			logger.Error("HTTP request", args...)
		case status >= 400:
			logger.Warn("HTTP request", args...)
		default:
			logger.Info("HTTP request", args...)
		}
	}
}

// errorFields describes the last error a handler attached to the request.
func errorFields(c *gin.Context) []any {
	last := c.Errors.Last()
	if last == nil {
		return nil
	}
	return []any{"error_kind", apperr.KindOf(last.Err).String(), "error_code", string(apperr.CodeOf(last.Err))}
}
