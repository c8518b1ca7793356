// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, error dispatch, panic
// recovery, compression, metrics, CORS, security headers, rate limiting and
// the authorization guards.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - One error path: every failure reaches the client through ErrorHandler
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-auth-backend/docs" // swagger docs registration
	"github.com/tbourn/go-auth-backend/internal/apperr"
	"github.com/tbourn/go-auth-backend/internal/auth"
	"github.com/tbourn/go-auth-backend/internal/config"
	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/http/guard"
	"github.com/tbourn/go-auth-backend/internal/http/handlers"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/services"
)

// MsgRouteNotFound is returned for unknown routes and unsupported methods.
const MsgRouteNotFound = "Resource not found"

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the UserService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type userRepoShim struct{}

// ListUsers proxies repo.ListUsers.
func (userRepoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

// CountUsers proxies repo.CountUsers (pagination support).
func (userRepoShim) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}

// ListUsersPage proxies repo.ListUsersPage (pagination support).
func (userRepoShim) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	return repo.ListUsersPage(ctx, db, offset, limit)
}

// FindUserByID proxies repo.FindUserByID.
func (userRepoShim) FindUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.FindUserByID(ctx, db, id)
}

// FindUserByEmail proxies repo.FindUserByEmail.
func (userRepoShim) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.FindUserByEmail(ctx, db, email)
}

// UpdateUser proxies repo.UpdateUser.
func (userRepoShim) UpdateUser(ctx context.Context, db *gorm.DB, id string, upd repo.UserUpdate) (*domain.User, error) {
	return repo.UpdateUser(ctx, db, id, upd)
}

// DeleteUser proxies repo.DeleteUser.
func (userRepoShim) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteUser(ctx, db, id)
}

// ListSessionIDs proxies repo.ListSessionIDs.
func (userRepoShim) ListSessionIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	return repo.ListSessionIDs(ctx, db, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), error dispatch,
// rate limiting, CORS and security headers, health/metrics/docs endpoints,
// and then mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Metrics: observes the final status, so it wraps the dispatcher
//  5. Gzip compression: the dispatcher must write inside its scope
//  6. ErrorHandler: renders whatever error the rest of the chain reports
//  7. Recovery: turn panics into errors for the dispatcher
//  8. Body size limiter
//  9. CORS and Security headers
//  10. Rate limiter (per IP; per user again behind the guards)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, provider *auth.Provider, cfg config.Config) {
	// Unsupported methods are reported as unknown resources.
	r.HandleMethodNotAllowed = false

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Response compression. gzip swaps c.Writer and closes it on return,
	// so everything that writes a body runs inside it.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Error dispatcher (runs after the chain returns)
	r.Use(middleware.ErrorHandler(middleware.ErrorHandlerOptions{
		LogErrors:           cfg.LogErrors,
		IncludeErrorDetails: cfg.ErrorDetails,
	}))

	// 7) Panic recovery into the dispatcher
	r.Use(middleware.Recovery())

	// 8) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", "X-Request-ID"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "X-Total-Count", "ETag", "Retry-After"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true, // session cookie
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:          cfg.Security.EnableHSTS,
		HSTSMaxAge:          cfg.Security.HSTSMaxAge,
		NoStore:             true,
		EnablePolicy:        true,
		TrustForwardedProto: cfg.Security.TrustProxy,
	}))

	// 10) Token-bucket rate limiter. No guard has run yet, so every request
	// is keyed by client IP here.
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).Handler())

	// Fallback
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, apperr.NotFound(MsgRouteNotFound, apperr.InDomain(apperr.DomainSystem)))
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/provider
	userSvc := services.NewUserService(db, userRepoShim{}, provider)
	authSvc := services.NewAuthService(provider)
	h := handlers.New(authSvc, userSvc, handlers.Options{
		CookieName:    cfg.Auth.CookieName(),
		SecureCookies: cfg.IsProduction(),
	})
	gs := guard.NewSet(provider, cfg.Auth.CookieName())

	// Behind the guards the user id is known, so one account is limited
	// across all of the addresses its token is used from.
	userLimit := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()

	// Credential endpoints get their own, stricter limiter keyed by IP.
	authLimit := func(c *gin.Context) { c.Next() }
	if cfg.Auth.AuthRateRPS > 0 {
		authLimit = middleware.NewRateLimiter(cfg.Auth.AuthRateRPS, cfg.Auth.AuthRateBurst, middleware.KeyByIP()).
			InDomain(apperr.DomainAuth).
			Handler()
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Auth
		a := api.Group("/auth")
		a.POST("/login", authLimit, h.Login)
		a.POST("/signup", authLimit, h.Signup)
		a.POST("/logout", gs.Authenticated(), userLimit, h.Logout)
		a.GET("/session", gs.Authenticated(), userLimit, h.Session)

		// Users
		u := api.Group("/users", gs.Authenticated(), userLimit)
		u.GET("", gs.AdminOnly(), h.ListUsers)
		u.GET("/:id", h.GetUser)
		u.PUT("/:id", h.UpdateUser)
		u.DELETE("/:id", h.DeleteUser)

		// Admin
		ad := api.Group("/admin", gs.AdminOnly(), userLimit)
		ad.POST("/revoke-sessions", h.RevokeAllSessions)
		ad.POST("/revoke-session/:userId", h.RevokeUserSessions)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
