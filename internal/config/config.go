package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBPath       string
	SchemaScript string

	// Presentation
	CurrencySymbol string

	// Customer segments (base currency unit)
	SegmentVIP     decimal.Decimal
	SegmentPremium decimal.Decimal
	SegmentRegular decimal.Decimal

	// Ranking limits
	TopProductsLimit  int
	TopCountriesLimit int
	TopCustomersLimit int
	RecentOrdersLimit int

	// Query execution
	QueryTimeout     time.Duration
	QueryConcurrency int

	// Cache
	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	RedisURL     string

	// AMQP (optional invalidation bus)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "./data/ecommerce.db"),
		SchemaScript: getEnv("SCHEMA_SCRIPT", "./data/database_setup.sql"),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),

		SegmentVIP:     getEnvDecimal("SEGMENT_VIP", decimal.NewFromInt(10000)),
		SegmentPremium: getEnvDecimal("SEGMENT_PREMIUM", decimal.NewFromInt(5000)),
		SegmentRegular: getEnvDecimal("SEGMENT_REGULAR", decimal.NewFromInt(1000)),

		TopProductsLimit:  getEnvInt("TOP_PRODUCTS_LIMIT", 5),
		TopCountriesLimit: getEnvInt("TOP_COUNTRIES_LIMIT", 10),
		TopCustomersLimit: getEnvInt("TOP_CUSTOMERS_LIMIT", 10),
		RecentOrdersLimit: getEnvInt("RECENT_ORDERS_LIMIT", 20),

		QueryTimeout:     getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		QueryConcurrency: getEnvInt("QUERY_CONCURRENCY", 4),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheSize:    getEnvInt("CACHE_SIZE", 256),
		CacheTTL:     getEnvDuration("CACHE_TTL", 10*time.Minute),
		RedisURL:     getEnv("REDIS_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ecomdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dashboard_invalidate"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CurrencySymbol == "" {
		errors = append(errors, "currency symbol cannot be empty")
	}

	// Segment thresholds must be positive and strictly decreasing
	if !c.SegmentRegular.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid regular segment threshold %s: must be positive", c.SegmentRegular))
	}
	if !c.SegmentPremium.GreaterThan(c.SegmentRegular) {
		errors = append(errors, fmt.Sprintf("invalid premium segment threshold %s: must be greater than regular (%s)", c.SegmentPremium, c.SegmentRegular))
	}
	if !c.SegmentVIP.GreaterThan(c.SegmentPremium) {
		errors = append(errors, fmt.Sprintf("invalid VIP segment threshold %s: must be greater than premium (%s)", c.SegmentVIP, c.SegmentPremium))
	}

	limits := []struct {
		name  string
		value int
	}{
		{"top products limit", c.TopProductsLimit},
		{"top countries limit", c.TopCountriesLimit},
		{"top customers limit", c.TopCustomersLimit},
		{"recent orders limit", c.RecentOrdersLimit},
	}
	for _, l := range limits {
		if l.value < 1 || l.value > 1000 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 1000", l.name, l.value))
		}
	}

	if c.QueryTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at least 100ms", c.QueryTimeout))
	} else if c.QueryTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at most 5 minutes", c.QueryTimeout))
	}

	if c.QueryConcurrency < 1 || c.QueryConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid query concurrency %d: must be between 1 and 32", c.QueryConcurrency))
	}

	// Validate cache backend
	validBackends := []string{"memory", "redis"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.CacheBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validBackends))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.CacheBackend == "redis" {
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when using redis cache backend")
		} else if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether the invalidation bus is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
