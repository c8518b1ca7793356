// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database selection, authentication,
// rate limiting, and observability.
package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-auth-backend/internal/sysutil"
)

// Environments accepted by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// minSecretLen is the minimum AUTH_SECRET length in bytes (HS256 key size).
const minSecretLen = 32

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
	TrustProxy bool          // TRUST_PROXY, honor X-Forwarded-Proto
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-auth-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig holds session and credential settings for the auth provider.
type AuthConfig struct {
	Secret        string        // AUTH_SECRET, HS256 signing key
	URL           string        // AUTH_URL, token issuer
	SessionTTL    time.Duration // SESSION_TTL
	UpdateAge     time.Duration // SESSION_UPDATE_AGE, sliding-expiry threshold
	CookiePrefix  string        // COOKIE_PREFIX
	BcryptCost    int           // BCRYPT_COST
	CacheTTL      time.Duration // SESSION_CACHE_TTL
	PurgeInterval time.Duration // SESSION_PURGE_INTERVAL (0 disables)
	AuthRateRPS   float64       // AUTH_RATE_RPS, per-IP limit on login/signup
	AuthRateBurst int           // AUTH_RATE_BURST
	AdminEmail    string        // ADMIN_EMAIL
	AdminPassword string        // ADMIN_PASSWORD
	AdminName     string        // ADMIN_NAME
}

// CookieName returns the session cookie name, "<prefix>.session_token".
func (a AuthConfig) CookieName() string {
	return a.CookiePrefix + ".session_token"
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Host              string        // bind address
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	AppEnv            string        // development|test|production

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Errors
	LogErrors    bool // LOG_ERRORS
	ErrorDetails bool // ERROR_DETAILS, expose internals of unexpected errors

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN
	DBDebug     bool   // DB_DEBUG, log every statement
	RedisURL    string // optional session cache

	// Auth
	Auth AuthConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Host:              getenv("HOST", "0.0.0.0"),
		Port:              getenv("PORT", "3333"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		AppEnv:            strings.ToLower(getenv("APP_ENV", EnvDevelopment)),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Errors
		LogErrors:    getbool("LOG_ERRORS", true),
		ErrorDetails: getbool("ERROR_DETAILS", false),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "app.db"),
		DatabaseURL: sysutil.FirstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_DSN")),
		DBDebug:     getbool("DB_DEBUG", false),
		RedisURL:    getenv("REDIS_URL", ""),

		// Auth
		Auth: AuthConfig{
			Secret:        os.Getenv("AUTH_SECRET"),
			URL:           getenv("AUTH_URL", "http://localhost:3333"),
			SessionTTL:    getdur("SESSION_TTL", 7*24*time.Hour),
			UpdateAge:     getdur("SESSION_UPDATE_AGE", 24*time.Hour),
			CookiePrefix:  getenv("COOKIE_PREFIX", "template-api"),
			BcryptCost:    getint("BCRYPT_COST", 10),
			CacheTTL:      getdur("SESSION_CACHE_TTL", 5*time.Minute),
			PurgeInterval: getdur("SESSION_PURGE_INTERVAL", time.Hour),
			AuthRateRPS:   getfloat("AUTH_RATE_RPS", 1.0),
			AuthRateBurst: getint("AUTH_RATE_BURST", 5),
			AdminEmail:    getenv("ADMIN_EMAIL", ""),
			AdminPassword: getenv("ADMIN_PASSWORD", ""),
			AdminName:     getenv("ADMIN_NAME", "Administrator"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			TrustProxy: getbool("TRUST_PROXY", false),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: sysutil.FirstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), os.Getenv("SERVICE_NAME"), "go-auth-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.AppEnv {
	case "dev":
		cfg.AppEnv = EnvDevelopment
	case "prod":
		cfg.AppEnv = EnvProduction
	}
	cfg.Auth.URL = strings.TrimRight(cfg.Auth.URL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch cfg.AppEnv {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return cfg, errors.New("APP_ENV must be one of: development, test, production")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if len(cfg.Auth.Secret) < minSecretLen {
		return cfg, errors.New("AUTH_SECRET must be at least 32 bytes")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.Auth.UpdateAge < 0 || cfg.Auth.UpdateAge > cfg.Auth.SessionTTL {
		return cfg, errors.New("SESSION_UPDATE_AGE must be in [0, SESSION_TTL]")
	}
	if strings.TrimSpace(cfg.Auth.CookiePrefix) == "" {
		return cfg, errors.New("COOKIE_PREFIX must not be empty")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return cfg, errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.Auth.CacheTTL <= 0 {
		return cfg, errors.New("SESSION_CACHE_TTL must be > 0")
	}
	if cfg.Auth.PurgeInterval < 0 {
		return cfg, errors.New("SESSION_PURGE_INTERVAL must be >= 0")
	}
	if cfg.Auth.AuthRateRPS < 0 {
		return cfg, errors.New("AUTH_RATE_RPS must be >= 0")
	}
	if cfg.Auth.AuthRateBurst < 1 {
		return cfg, errors.New("AUTH_RATE_BURST must be >= 1")
	}
	if (cfg.Auth.AdminEmail == "") != (cfg.Auth.AdminPassword == "") {
		return cfg, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getdur accepts Go durations plus a "d" (days) suffix, e.g. "7d".
func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if strings.HasSuffix(v, "d") {
			if n, err := strconv.Atoi(strings.TrimSuffix(v, "d")); err == nil {
				return time.Duration(n) * 24 * time.Hour
			}
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
