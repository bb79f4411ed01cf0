// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers the correlation and logging core of the stack:
//
//   - RequestID() gives every request a stable id, reusing the client's
//     X-Request-ID when present. The same id shows up in access logs, error
//     envelopes, and the headers browser clients can read.
//   - Logger() emits one structured access line per request and parks a
//     request-scoped zerolog.Logger in the Gin context so services can tag
//     their own lines with the same correlation fields, e.g.
//     middleware.LoggerFrom(c).Info().Str("booking_id", b.ID).Msg("booking confirmed").
//   - Recovery() turns panics into the standard JSON 500 envelope without
//     losing the request id or the stack trace.
//
// Install order is RequestID, Logger, Recovery: a panic then carries the id
// and gets logged with the request's fields.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	// queryLogCap bounds how much of the raw query string is logged. Listing
	// endpoints take harmless short queries (page, page_size, unread); anything
	// longer is noise or abuse and gets cut.
	queryLogCap = 2048
)

// RequestID attaches a correlation id to the request: the inbound
// X-Request-ID when the client sent one, a fresh UUIDv4 otherwise. The id is
// stored in the Gin context and mirrored on the response header.
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

// Logger writes one access-log line per request and attaches a request-scoped
// logger under the "logger" context key.
//
// The line carries method, matched route (raw path for 404s), caller identity
// when the edge resolved one, sizes, status and latency. Level follows the
// outcome: error for 5xx or collected Gin errors, warn for 4xx, info for the
// rest — so a burst of rejected review submissions is visible at warn without
// drowning the info stream.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		uid, _ := c.Get("userID")
		path := c.FullPath()
		if path == "" {
			// Unmatched route; log what was asked for.
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", asString(uid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, queryLogCap)).
			Int64("bytes_in", c.Request.ContentLength). // -1 when unknown
			Logger()

		c.Set("logger", &l)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		ev := l.With().
			Int("status", status).
			Dur("latency", latency).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery logs recovered panics with their stack and answers with the
// standard error envelope, unless a handler already wrote part of a response,
// in which case only the status is forced to 500.
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

// LoggerFrom returns the request-scoped logger attached by Logger(). When
// none is present (Logger not installed, or non-request code paths) it
// returns the global logger, so callers never need a nil check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString unwraps a context value as a string, "" for anything else.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s at max bytes and marks the cut with an ellipsis. max <= 0
// disables the cap. Byte-based, which is fine for log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
