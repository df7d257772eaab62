package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	DBAutoMigrate      bool

	Pricing pricing.Config

	QuoteCacheTTL time.Duration

	// RateLimitRead uses the ulule formatted rate syntax, e.g. "120-M".
	RateLimitRead        string
	AlertRateLimitMax    int
	AlertRateLimitWindow time.Duration

	AlertSweepSpec    string
	AlertSweepLimit   int
	AlertQueue        string
	AlertMaxRetry     int
	AlertDedupWindow  time.Duration
	WorkerConcurrency int
	LockTTL           time.Duration

	LogFormat       string
	LogLevel        string
	TraceExporter   string
	TraceEndpoint   string
	TraceSampling   float64
	HTTPBucketsMS   []float64
	MetricsEnabled  bool
	MaxRequestBytes int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := pricing.DefaultConfig()
	var errs []error
	num := func(key string, fallback float64) float64 {
		v, err := parseFloat(k.String(key), fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}
	intKey := func(key string, fallback int) int {
		v, err := parseInt(k.String(key), fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}
	durKey := func(key string, fallback time.Duration) time.Duration {
		v, err := parseDuration(k.String(key), fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}

	volumes, err := parseFloatList(k.String("PRICING_STANDARD_VOLUMES"), defaults.StandardVolumes)
	if err != nil {
		errs = append(errs, fmt.Errorf("PRICING_STANDARD_VOLUMES: %w", err))
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DBAutoMigrate:      parseBool(k.String("DB_AUTO_MIGRATE")),
		Pricing: pricing.Config{
			Margin:          num("PRICING_MARGIN", defaults.Margin),
			MinVolume:       num("PRICING_MIN_VOLUME", defaults.MinVolume),
			MaxVolume:       num("PRICING_MAX_VOLUME", defaults.MaxVolume),
			StandardVolumes: volumes,
		},
		QuoteCacheTTL:        durKey("QUOTE_CACHE_TTL", 5*time.Minute),
		RateLimitRead:        valueOrDefault(k.String("RATE_LIMIT_READ"), "120-M"),
		AlertRateLimitMax:    intKey("ALERT_RATE_LIMIT_MAX", 5),
		AlertRateLimitWindow: durKey("ALERT_RATE_LIMIT_WINDOW", time.Hour),
		AlertSweepSpec:       valueOrDefault(k.String("ALERT_SWEEP_SPEC"), "@every 30m"),
		AlertSweepLimit:      intKey("ALERT_SWEEP_LIMIT", 500),
		AlertQueue:           valueOrDefault(k.String("ALERT_QUEUE"), "alerts"),
		AlertMaxRetry:        intKey("ALERT_MAX_RETRY", 5),
		AlertDedupWindow:     durKey("ALERT_DEDUP_WINDOW", 15*time.Minute),
		WorkerConcurrency:    intKey("WORKER_CONCURRENCY", 4),
		LockTTL:              durKey("LOCK_TTL", 5*time.Minute),
		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		TraceExporter:        valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		TraceEndpoint:        k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampling:        num("OTEL_TRACES_SAMPLER_RATIO", 0.1),
		HTTPBucketsMS:        obs.ParseBucketsCSV(k.String("OBS_HTTP_BUCKETS_MS")),
		MetricsEnabled:       k.String("OBS_METRICS_ENABLED") == "" || parseBool(k.String("OBS_METRICS_ENABLED")),
		MaxRequestBytes:      int64(intKey("HTTP_MAX_BODY_BYTES", 1<<20)),
	}

	if err := cfg.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "prod", "production":
		return true
	}
	return false
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, err
	}
	if d <= 0 {
		return fallback, fmt.Errorf("must be positive, got %s", value)
	}
	return d, nil
}

func parseInt(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, err
	}
	if n < 0 {
		return fallback, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

func parseFloat(value string, fallback float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, err
	}
	return f, nil
}

func parseFloatList(value string, fallback []float64) ([]float64, error) {
	parts := splitAndTrim(value)
	if len(parts) == 0 {
		return append([]float64(nil), fallback...), nil
	}
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return append([]float64(nil), fallback...), fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
