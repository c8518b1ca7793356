// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RateLimiter is a process-local token-bucket limiter keyed per caller. The
// router installs one globally (per user or IP) and a stricter one on the
// credential endpoints (per IP), so password guessing is throttled before it
// reaches bcrypt. Rejections are FORBIDDEN errors carrying Retry-After.
//
// Buckets idle for longer than the TTL are swept at most once per TTL, during
// a lookup. Horizontally scaled deployments need a shared limiter instead.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-auth-backend/internal/apperr"
)

// MsgRateLimited is the client-facing message for rejected requests.
const MsgRateLimited = "Too many requests. Please try again later."

const (
	defaultBucketTTL = 10 * time.Minute
	// maxRetryAfter caps Retry-After, and is used when the limit is zero.
	maxRetryAfter = 60
)

// keyFunc maps a request to its bucket. Keys carry a namespace prefix
// ("user:", "ip:") so identities cannot collide.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys authenticated requests by the user id the guards store
// under "userID" and everything else by client IP.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := c.GetString("userID"); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys by client IP only. Used on login and signup, where no user
// identity exists yet.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-key token bucket. Safe for concurrent use.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	keyFn  keyFunc
	domain apperr.Domain
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps requests per second per key with the given
// burst (coerced to at least 1). Rejections are reported in DomainSystem
// unless InDomain says otherwise.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	now := time.Now
	return &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		domain:    apperr.DomainSystem,
		ttl:       defaultBucketTTL,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

// InDomain sets the error domain reported on rejection.
func (rl *RateLimiter) InDomain(d apperr.Domain) *RateLimiter {
	rl.domain = d
	return rl
}

// limiterFor returns the bucket for key, creating it when absent. Idle
// buckets are swept first so a stale bucket is never revived.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// retryAfter reports the whole seconds until lim can admit one request,
// clamped to [1, maxRetryAfter]. The probe reservation is cancelled.
func retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return maxRetryAfter
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	if d == rate.InfDuration {
		return maxRetryAfter
	}
	secs := int(math.Ceil(d.Seconds()))
	switch {
	case secs < 1:
		return 1
	case secs > maxRetryAfter:
		return maxRetryAfter
	}
	return secs
}

// Handler returns the Gin middleware. A rejected request is aborted with a
// Retry-After header and a FORBIDDEN error whose details carry requestId and
// retryAfter.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := rl.now()
		key := rl.keyFn(c)
		lim := rl.limiterFor(key, now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		wait := retryAfter(lim, now)
		c.Header("Retry-After", strconv.Itoa(wait))
		LoggerFrom(c).Warn().Str("key", key).Int("retry_after", wait).Msg("rate limit exceeded")
		_ = c.Error(apperr.Forbidden(MsgRateLimited,
			apperr.InDomain(rl.domain),
			apperr.WithDetails(apperr.Details{
				"requestId":  RequestIDFrom(c),
				"retryAfter": wait,
			}),
		))
		c.Abort()
	}
}
