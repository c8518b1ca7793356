// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Prometheus collectors for the API. Every label is either a registered route
// template or a closed enum, so scrapes stay bounded no matter what clients
// send:
//
//   - http_requests_total{method,route,status}
//   - http_request_duration_seconds{method,route}
//   - http_response_size_bytes{method,route}
//   - http_requests_inflight
//   - app_errors_total{kind,domain}, fed by the error dispatcher
//   - auth_events_total{event,outcome}, fed by the auth and admin handlers
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// Auth event names accepted by RecordAuthEvent.
const (
	AuthEventLogin      = "login"
	AuthEventSignup     = "signup"
	AuthEventLogout     = "logout"
	AuthEventRevokeUser = "revoke_user"
	AuthEventRevokeAll  = "revoke_all"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// Status is left off the latency histogram to keep its series count low.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "HTTP requests currently being served.",
		},
	)

	// Auth and user payloads are small JSON documents.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B..1MiB
		},
		[]string{"method", "route"},
	)

	appErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Error responses by kind and domain.",
		},
		[]string{"kind", "domain"},
	)

	authEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication and session events by outcome.",
		},
		[]string{"event", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, appErrors, authEvents)
}

// Metrics returns a Gin middleware that records the http_* collectors.
// Mount /metrics with promhttp.Handler next to it.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}

// RecordAuthEvent counts one auth event. The outcome is "success" for a nil
// err, the lowercased error kind for an *apperr.Error, and "error" otherwise.
func RecordAuthEvent(event string, err error) {
	authEvents.WithLabelValues(event, authOutcome(err)).Inc()
}

func authOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if ae, ok := apperr.As(err); ok {
		return strings.ToLower(string(ae.Kind()))
	}
	return "error"
}
