// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation and recovery:
//
//   - RequestID() reuses or generates X-Request-ID and stores it in the context.
//   - ScopedLogger() attaches a request-scoped zerolog.Logger (request id,
//     route, redacted session) that handlers fetch with LoggerFrom().
//   - Recovery() turns panics into the standard JSON 500 envelope.
//
// Recommended order: RequestID, RedactingLogger, ScopedLogger, Recovery, so
// panics and handler logs carry the correlation id.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The id
// is echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// ScopedLogger stores a logger enriched with the request id, method, route
// and the redacted session id. It writes nothing itself; RedactingLogger owns
// the access line.
func ScopedLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		lc := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path)
		if id := c.Param("id"); id != "" {
			lc = lc.Str("session", redactPII(id))
		}
		l := lc.Logger()
		c.Set(loggerKey, &l)

		c.Next()
	}
}

// Recovery intercepts panics, logs the stack with the request ID, and writes
// {"request_id","code":"internal_error","message"} when nothing has been
// written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// ScopedLogger is not installed. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
