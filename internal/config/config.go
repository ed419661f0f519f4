// Package config holds the resolver configuration surface and loads it from viper.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lepinkainen/folio/internal/retry"
	"github.com/spf13/viper"
)

// Engine is the resolver configuration. A zero value is not usable; start
// from Defaults.
type Engine struct {
	MaxConcurrentRequests int
	RequestTimeout        time.Duration

	RetryAttempts int
	RetryDelay    time.Duration
	RetryBackoff  retry.Backoff

	RateLimitPerSecond float64
	EnableRateLimiting bool

	EnableCircuitBreaker    bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	EnableCaching   bool
	CacheTTL        time.Duration
	CacheMaxEntries int

	// MaxBatchSize caps the identifiers accepted by one resolve call.
	MaxBatchSize int
	// BatchThreshold is the unique-identifier count at which a batch-capable
	// provider is asked for everything in one request.
	BatchThreshold int
}

// Defaults returns the stock engine configuration.
func Defaults() Engine {
	return Engine{
		MaxConcurrentRequests:   5,
		RequestTimeout:          10 * time.Second,
		RetryAttempts:           3,
		RetryDelay:              time.Second,
		RetryBackoff:            retry.Exponential,
		RateLimitPerSecond:      2,
		EnableRateLimiting:      false,
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
		EnableCaching:           true,
		CacheTTL:                24 * time.Hour,
		CacheMaxEntries:         1000,
		MaxBatchSize:            100,
		BatchThreshold:          10,
	}
}

// RetryPolicy derives the retry policy.
func (e Engine) RetryPolicy() retry.Policy {
	return retry.Policy{Attempts: e.RetryAttempts, Delay: e.RetryDelay, Backoff: e.RetryBackoff}
}

// Validate rejects settings the engine cannot run with.
func (e Engine) Validate() error {
	var problems []string
	if e.MaxConcurrentRequests < 1 {
		problems = append(problems, "max_concurrent_requests must be at least 1")
	}
	if e.RequestTimeout <= 0 {
		problems = append(problems, "request_timeout must be positive")
	}
	if e.RetryAttempts < 1 {
		problems = append(problems, "retry_attempts must be at least 1")
	}
	if e.RetryDelay < 0 {
		problems = append(problems, "retry_delay must not be negative")
	}
	if e.EnableRateLimiting && e.RateLimitPerSecond <= 0 {
		problems = append(problems, "rate_limit_per_second must be positive when rate limiting is enabled")
	}
	if e.EnableCircuitBreaker {
		if e.CircuitBreakerThreshold < 1 {
			problems = append(problems, "circuit_breaker_threshold must be at least 1")
		}
		if e.CircuitBreakerTimeout <= 0 {
			problems = append(problems, "circuit_breaker_timeout must be positive")
		}
	}
	if e.EnableCaching && e.CacheTTL <= 0 {
		problems = append(problems, "cache_ttl must be positive when caching is enabled")
	}
	if e.CacheMaxEntries < 0 {
		problems = append(problems, "cache_max_entries must not be negative")
	}
	if e.MaxBatchSize < 1 {
		problems = append(problems, "max_batch_size must be at least 1")
	}
	if e.BatchThreshold < 1 {
		problems = append(problems, "batch_threshold must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid resolver config: %s", strings.Join(problems, "; "))
	}
	return nil
}

const prefix = "resolver."

// SetDefaults registers every engine and provider default with viper.
func SetDefaults() {
	d := Defaults()
	viper.SetDefault(prefix+"max_concurrent_requests", d.MaxConcurrentRequests)
	viper.SetDefault(prefix+"request_timeout", d.RequestTimeout)
	viper.SetDefault(prefix+"retry_attempts", d.RetryAttempts)
	viper.SetDefault(prefix+"retry_delay", d.RetryDelay)
	viper.SetDefault(prefix+"retry_backoff", d.RetryBackoff.String())
	viper.SetDefault(prefix+"rate_limit_per_second", d.RateLimitPerSecond)
	viper.SetDefault(prefix+"enable_rate_limiting", d.EnableRateLimiting)
	viper.SetDefault(prefix+"enable_circuit_breaker", d.EnableCircuitBreaker)
	viper.SetDefault(prefix+"circuit_breaker_threshold", d.CircuitBreakerThreshold)
	viper.SetDefault(prefix+"circuit_breaker_timeout", d.CircuitBreakerTimeout)
	viper.SetDefault(prefix+"enable_caching", d.EnableCaching)
	viper.SetDefault(prefix+"cache_ttl", d.CacheTTL)
	viper.SetDefault(prefix+"cache_max_entries", d.CacheMaxEntries)
	viper.SetDefault(prefix+"max_batch_size", d.MaxBatchSize)
	viper.SetDefault(prefix+"batch_threshold", d.BatchThreshold)
	viper.SetDefault(prefix+"provider", "openlibrary")

	viper.SetDefault("cache.dbfile", "")
	viper.SetDefault("library.dbfile", "./folio.db")
}

// Load reads the engine configuration from viper.
func Load() (Engine, error) {
	e := Engine{
		MaxConcurrentRequests:   viper.GetInt(prefix + "max_concurrent_requests"),
		RequestTimeout:          viper.GetDuration(prefix + "request_timeout"),
		RetryAttempts:           viper.GetInt(prefix + "retry_attempts"),
		RetryDelay:              viper.GetDuration(prefix + "retry_delay"),
		RateLimitPerSecond:      viper.GetFloat64(prefix + "rate_limit_per_second"),
		EnableRateLimiting:      viper.GetBool(prefix + "enable_rate_limiting"),
		EnableCircuitBreaker:    viper.GetBool(prefix + "enable_circuit_breaker"),
		CircuitBreakerThreshold: viper.GetInt(prefix + "circuit_breaker_threshold"),
		CircuitBreakerTimeout:   viper.GetDuration(prefix + "circuit_breaker_timeout"),
		EnableCaching:           viper.GetBool(prefix + "enable_caching"),
		CacheTTL:                viper.GetDuration(prefix + "cache_ttl"),
		CacheMaxEntries:         viper.GetInt(prefix + "cache_max_entries"),
		MaxBatchSize:            viper.GetInt(prefix + "max_batch_size"),
		BatchThreshold:          viper.GetInt(prefix + "batch_threshold"),
	}

	backoff, err := retry.ParseBackoff(viper.GetString(prefix + "retry_backoff"))
	if err != nil {
		return Engine{}, err
	}
	e.RetryBackoff = backoff

	if err := e.Validate(); err != nil {
		return Engine{}, err
	}
	return e, nil
}

// ProviderName is the configured active provider.
func ProviderName() string {
	return viper.GetString(prefix + "provider")
}

// BindEnv maps the conventional environment variables onto config keys.
func BindEnv() {
	bindings := map[string]string{
		"isbndb.api_key":      "ISBNDB_API_KEY",
		"googlebooks.api_key": "GOOGLE_BOOKS_API_KEY",
		"catalog.url":         "FOLIO_CATALOG_URL",
		"catalog.api_key":     "FOLIO_CATALOG_API_KEY",
		prefix + "provider":   "FOLIO_PROVIDER",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "env", env, "error", err)
		}
	}
}

// LoadDotEnv loads KEY=value pairs from the given files (default .env) into
// the process environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			slog.Debug("No env file loaded", "file", f, "error", err)
		}
	}
}
