// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements ErrorHandler, the single place where error bodies are
// written. Guards and handlers report failures with c.Error(err) and abort;
// after the chain returns, ErrorHandler renders the last error.
//
//   - *apperr.Error is logged with request context, tagged by domain, and
//     sent with its status code and envelope unchanged.
//   - Any other error (including recovered panics) becomes INTERNAL/SYSTEM
//     with a generic message. Its text and stack are exposed in details only
//     when IncludeErrorDetails is set.
package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

// MsgUnexpected is the client-facing message for untyped failures.
const MsgUnexpected = "An unexpected error occurred. Please try again later."

// ErrorHandlerOptions configures ErrorHandler.
type ErrorHandlerOptions struct {
	// LogErrors logs typed errors. Unhandled errors are always logged.
	LogErrors bool
	// IncludeErrorDetails exposes originalError and stack of untyped errors.
	// Never enable in production.
	IncludeErrorDetails bool
}

// ErrorHandler returns the error dispatcher middleware. Install it after
// RequestID and RedactingLogger and before Recovery.
func ErrorHandler(opt ErrorHandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		Dispatch(c, c.Errors.Last().Err, opt)
	}
}

// Dispatch logs err and writes the uniform error envelope. When a response
// was already written, it only logs.
func Dispatch(c *gin.Context, err error, opt ErrorHandlerOptions) {
	lg := LoggerFrom(c)

	ae, typed := apperr.As(err)
	if typed {
		if opt.LogErrors {
			ev := lg.Error().
				Dict("request", requestDict(c)).
				Str("error_code", ae.Code()).
				Str("kind", string(ae.Kind())).
				Str("domain", string(ae.Domain()))
			if cause := ae.Cause(); cause != nil {
				ev = ev.AnErr("cause", cause)
			}
			ev.Msgf("[%s] Error: %s", ae.Domain(), ae.Message())
		}
	} else {
		ae = wrapUnexpected(err, opt.IncludeErrorDetails)
		lg.Error().
			Dict("request", requestDict(c)).
			Str("error_code", ae.Code()).
			Err(err).
			Msgf("[%s] Unhandled error: %s", apperr.DomainSystem, err.Error())
	}

	recordOnSpan(c, ae, err)
	appErrors.WithLabelValues(string(ae.Kind()), string(ae.Domain())).Inc()

	if c.Writer.Written() {
		return
	}
	c.AbortWithStatusJSON(ae.StatusCode(), ae.ToResponse())
}

func wrapUnexpected(err error, includeDetails bool) *apperr.Error {
	opts := []apperr.Option{apperr.WithCause(err)}
	if includeDetails {
		opts = append(opts, apperr.WithDetails(apperr.Details{
			"originalError": err.Error(),
			"stack":         stackOf(err),
		}))
	}
	return apperr.Internal(MsgUnexpected, opts...)
}

// stackOf returns the panic stack for recovered panics, else the current one.
func stackOf(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) && len(pe.Stack) > 0 {
		return string(pe.Stack)
	}
	return string(debug.Stack())
}

// requestDict describes the request for error logs. Headers are scrubbed.
func requestDict(c *gin.Context) *zerolog.Event {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return zerolog.Dict().
		Str("id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("url", c.Request.URL.Path).
		Str("query", truncate(defaultScrubber.redact(c.Request.URL.RawQuery), maxQueryLogLength)).
		Interface("params", params).
		Interface("headers", defaultScrubber.headers(c.Request.Header))
}

func recordOnSpan(c *gin.Context, ae *apperr.Error, err error) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.code", ae.Code()),
		attribute.String("error.kind", string(ae.Kind())),
		attribute.String("error.domain", string(ae.Domain())),
	)
	if ae.StatusCode() >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, ae.Message())
	}
}
