package config

import (
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeStream Mode = "stream"
	ModeHTTP   Mode = "http"
)

type Config struct {
	Mode            Mode
	TickSize        float64
	PriceEpsilon    float64
	Port            string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogPretty bool
	LogFile   string

	RateLimitDisabled     bool
	RateLimitMax          int
	RateLimitWindow       time.Duration
	MaxConcurrentRequests int64
	MaintenanceMode       bool
	RequestLogDisabled    bool

	DefaultDepth int
	MaxDepth     int
	MaxLatencies int
}

// Load reads the configuration from the environment. Unparseable values fall
// back to their defaults. TICK_SIZE is passed through as given so that a
// non-positive value is reported by the book itself.
func Load() Config {
	cfg := Config{
		Mode:                  ModeStream,
		TickSize:              0.05,
		PriceEpsilon:          1e-7,
		Port:                  ":8080",
		ShutdownTimeout:       10 * time.Second,
		LogLevel:              os.Getenv("LOG_LEVEL"),
		LogPretty:             os.Getenv("LOG_FORMAT") == "pretty",
		LogFile:               os.Getenv("LOG_FILE"),
		RateLimitDisabled:     os.Getenv("RATE_LIMIT_DISABLED") == "1",
		RateLimitMax:          envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:       envDuration("RATE_LIMIT_WINDOW", time.Second),
		MaxConcurrentRequests: int64(envInt("MAX_CONCURRENT_REQUESTS", 0)),
		MaintenanceMode:       os.Getenv("MAINTENANCE_MODE") == "1",
		RequestLogDisabled:    os.Getenv("REQUEST_LOGGING_DISABLED") == "1",
		DefaultDepth:          envInt("ORDERBOOK_DEFAULT_DEPTH", 10),
		MaxDepth:              envInt("ORDERBOOK_MAX_DEPTH", 1000),
		MaxLatencies:          envInt("METRICS_MAX_LATENCIES", 10000),
	}

	if mode := os.Getenv("ENGINE_MODE"); mode == string(ModeHTTP) {
		cfg.Mode = ModeHTTP
	}

	if envTick := os.Getenv("TICK_SIZE"); envTick != "" {
		if parsed, err := strconv.ParseFloat(envTick, 64); err == nil {
			cfg.TickSize = parsed
		}
	}

	if envEps := os.Getenv("PRICE_EPSILON"); envEps != "" {
		if parsed, err := strconv.ParseFloat(envEps, 64); err == nil && parsed > 0 {
			cfg.PriceEpsilon = parsed
		}
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		cfg.Port = ":" + envPort
	}

	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// edge case: default depth can never exceed the cap
	if cfg.DefaultDepth > cfg.MaxDepth {
		cfg.DefaultDepth = cfg.MaxDepth
	}

	return cfg
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
