package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

type envelope struct {
	Error struct {
		Code      string         `json:"code"`
		Type      string         `json:"type"`
		Domain    string         `json:"domain"`
		Message   string         `json:"message"`
		Timestamp string         `json:"timestamp"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
}

func newDispatchRouter(opt ErrorHandlerOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{}))
	r.Use(ErrorHandler(opt))
	r.Use(Recovery())
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.NotFound("Resource not found", apperr.InDomain(apperr.DomainSystem)))
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

func TestErrorHandler_TypedError(t *testing.T) {
	buf := withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{LogErrors: true})
	r.GET("/users/:id", func(c *gin.Context) {
		_ = c.Error(apperr.NotFound("User with ID "+c.Param("id")+" not found.",
			apperr.InDomain(apperr.DomainUser),
			apperr.WithDetail("userId", c.Param("id")),
			apperr.WithCause(errors.New("record not found")),
		))
		c.Abort()
	})

	before := testutil.ToFloat64(appErrors.WithLabelValues("NOT_FOUND", "USER"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u-1?x=1", nil)
	req.Header.Set("Authorization", "Bearer top-secret")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.Equal(t, "NOT_FOUND", env.Error.Type)
	assert.Equal(t, "USER", env.Error.Domain)
	assert.Equal(t, "User with ID u-1 not found.", env.Error.Message)
	assert.Equal(t, "u-1", env.Error.Details["userId"])
	assert.Regexp(t, `^USER-NOT_FOUND-\d{14}$`, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "record not found", "cause must not be serialized")

	assert.Equal(t, before+1, testutil.ToFloat64(appErrors.WithLabelValues("NOT_FOUND", "USER")))

	logs := buf.String()
	assert.Contains(t, logs, "[USER] Error: User with ID u-1 not found.")
	assert.Contains(t, logs, `"url":"/users/u-1"`)
	assert.Contains(t, logs, `"params":{"id":"u-1"}`)
	assert.Contains(t, logs, `"Authorization":"[REDACTED]"`)
	assert.NotContains(t, logs, "top-secret")
}

func TestErrorHandler_TypedError_NotLoggedWhenDisabled(t *testing.T) {
	buf := withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{LogErrors: false})
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(apperr.BadRequest(""))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, buf.String(), "Error: Bad request.")
}

func TestErrorHandler_UntypedError_HidesInternals(t *testing.T) {
	buf := withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{LogErrors: false})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	env := decode(t, w)
	assert.Equal(t, "INTERNAL", env.Error.Type)
	assert.Equal(t, "SYSTEM", env.Error.Domain)
	assert.Equal(t, MsgUnexpected, env.Error.Message)
	assert.Nil(t, env.Error.Details)

	// Unhandled errors are logged even when typed-error logging is off.
	assert.Contains(t, buf.String(), "[SYSTEM] Unhandled error: boom")
}

func TestErrorHandler_UntypedError_DetailsWhenEnabled(t *testing.T) {
	_ = withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{IncludeErrorDetails: true})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	env := decode(t, w)
	assert.Equal(t, "boom", env.Error.Details["originalError"])
	stack, _ := env.Error.Details["stack"].(string)
	assert.NotEmpty(t, stack)
}

func TestErrorHandler_PanicStackWhenEnabled(t *testing.T) {
	_ = withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{IncludeErrorDetails: true})
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, "panic: kaboom", env.Error.Details["originalError"])
	stack, _ := env.Error.Details["stack"].(string)
	assert.True(t, strings.Contains(stack, "goroutine"), "expected recovered stack, got %q", stack)
}

func TestErrorHandler_LastErrorWins(t *testing.T) {
	_ = withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{})
	r.GET("/two", func(c *gin.Context) {
		_ = c.Error(apperr.BadRequest(""))
		_ = c.Error(apperr.Conflict("Email a@b.c already in use.", apperr.InDomain(apperr.DomainUser)))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/two", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w).Error.Type)
}

func TestErrorHandler_NoErrors_PassThrough(t *testing.T) {
	r := newDispatchRouter(ErrorHandlerOptions{})
	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	_ = withCapturedLogger(t)
	r := newDispatchRouter(ErrorHandlerOptions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.Equal(t, "NOT_FOUND", env.Error.Type)
	assert.Equal(t, "SYSTEM", env.Error.Domain)
	assert.Equal(t, "Resource not found", env.Error.Message)
}
