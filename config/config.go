// Package config provides configuration management for the application.
//
// All settings come from environment variables (a local .env file is loaded
// first if present). Every variable has a sensible default; the server runs
// with no configuration at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults. The cache TTL and minimum request interval follow the values the
// Aareguru operators recommend (2 respectively 5 minutes).
const (
	DefaultBaseURL            = "https://aareguru.existenz.ch"
	DefaultAppName            = "aareguru-mcp"
	DefaultCacheTTL           = 120 * time.Second
	DefaultMinRequestInterval = 300 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
	DefaultHTTPHost           = "0.0.0.0"
	DefaultHTTPPort           = 8000
	DefaultMaxIdleConns       = 10
	DefaultMaxConnsPerHost    = 20
)

// Config holds the application configuration.
type Config struct {
	// Upstream API.
	BaseURL    string
	AppName    string
	AppVersion string

	// Cache.
	CacheTTL     time.Duration
	CacheBackend string // "memory" or "redis"
	RedisURL     string

	// Rate limiting of upstream requests.
	MinRequestInterval time.Duration

	// SingleFlight collapses concurrent cache misses for the same key into
	// one upstream fetch. Off by default: with it off, two concurrent
	// misses each consume a rate-limiter slot, which is the documented
	// baseline behavior.
	SingleFlight bool

	// HTTP client.
	RequestTimeout  time.Duration
	MaxIdleConns    int
	MaxConnsPerHost int

	// Retry surface. These exist for parity with the documented
	// configuration but the request coordinator performs no retries: a
	// retry loop would consume extra rate-limiter slots and change
	// observable fetch timing. They are read, validated and otherwise
	// unused.
	RetryMaxAttempts   int
	RetryBackoffFactor float64

	// HTTP server (health, metrics, MCP streamable transport).
	HTTPHost string
	HTTPPort int

	// Logging.
	LogLevel  string // debug, info, warn, error
	LogFormat string // text or json
}

// Load reads configuration from a .env file (if present) and the
// environment, applies defaults and validates the result.
func Load() (*Config, error) {
	// Optional; missing .env is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:            getEnvString("AARE_BASE_URL", DefaultBaseURL),
		AppName:            getEnvString("AARE_APP_NAME", DefaultAppName),
		AppVersion:         getEnvString("AARE_APP_VERSION", "0.1.0"),
		CacheTTL:           getEnvSeconds("AARE_CACHE_TTL_SECONDS", DefaultCacheTTL),
		CacheBackend:       getEnvString("AARE_CACHE_BACKEND", "memory"),
		RedisURL:           getEnvString("AARE_REDIS_URL", ""),
		MinRequestInterval: getEnvSeconds("AARE_MIN_REQUEST_INTERVAL_SECONDS", DefaultMinRequestInterval),
		SingleFlight:       getEnvBool("AARE_SINGLE_FLIGHT", false),
		RequestTimeout:     getEnvSeconds("AARE_REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeout),
		MaxIdleConns:       getEnvInt("AARE_HTTP_MAX_IDLE_CONNS", DefaultMaxIdleConns),
		MaxConnsPerHost:    getEnvInt("AARE_HTTP_MAX_CONNS_PER_HOST", DefaultMaxConnsPerHost),
		RetryMaxAttempts:   getEnvInt("AARE_RETRY_MAX_ATTEMPTS", 3),
		RetryBackoffFactor: getEnvFloat("AARE_RETRY_BACKOFF_FACTOR", 2.0),
		HTTPHost:           getEnvString("AARE_HTTP_HOST", DefaultHTTPHost),
		HTTPPort:           getEnvInt("AARE_HTTP_PORT", DefaultHTTPPort),
		LogLevel:           getEnvString("AARE_LOG_LEVEL", "info"),
		LogFormat:          getEnvString("AARE_LOG_FORMAT", "text"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: AARE_BASE_URL must not be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: cache TTL must not be negative, got %v", c.CacheTTL)
	}
	if c.MinRequestInterval < 0 {
		return fmt.Errorf("config: min request interval must not be negative, got %v", c.MinRequestInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: HTTP port must be in 1..65535, got %d", c.HTTPPort)
	}
	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("config: AARE_REDIS_URL is required with the redis cache backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q (want memory or redis)", c.CacheBackend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// HTTPAddr returns the listen address for the HTTP transport.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvSeconds reads a duration expressed as a plain integer number of
// seconds, or as a Go duration string ("2m", "1h30m") for convenience.
func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
