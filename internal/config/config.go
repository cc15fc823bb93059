package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

const (
	maxTrendConcurrency = 12
	maxTrendMonths      = 120
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed
	TrustedProxies []string

	// Backend selection
	DataBackend   string
	SQLiteDBPath  string
	QueryStrategy string

	// Analytics
	Timezone         string
	TrendConcurrency int
	TrendMaxMonths   int
	Currency         string
	Locale           string

	// AMQP, publishing is disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AlertSweepInterval paces the worker's full alert recompute; zero
	// sweeps only at startup
	AlertSweepInterval time.Duration

	// Summary cache
	CacheTTL  time.Duration
	CacheSize int

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		QueryStrategy: getEnv("QUERY_STRATEGY", string(ledger.StrategyPushdown)),

		Timezone:         getEnv("TIMEZONE", "UTC"),
		TrendConcurrency: getEnvInt("TREND_CONCURRENCY", 3),
		TrendMaxMonths:   getEnvInt("TREND_MAX_MONTHS", 24),
		Currency:         getEnv("CURRENCY", "FCFA"),
		Locale:           getEnv("LOCALE", "fr"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AlertSweepInterval: getEnvDuration("ALERT_SWEEP_INTERVAL", 15*time.Minute),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 200),

		LogLevel: getEnv("LOG_LEVEL", "info"),
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

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if _, err := ledger.ParseStrategy(c.QueryStrategy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid query strategy '%s': must be 'pushdown' or 'scan'", c.QueryStrategy))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.TrendConcurrency < 1 || c.TrendConcurrency > maxTrendConcurrency {
		errors = append(errors, fmt.Sprintf("invalid trend concurrency %d: must be between 1 and %d", c.TrendConcurrency, maxTrendConcurrency))
	}
	if c.TrendMaxMonths < 1 || c.TrendMaxMonths > maxTrendMonths {
		errors = append(errors, fmt.Sprintf("invalid trend max months %d: must be between 1 and %d", c.TrendMaxMonths, maxTrendMonths))
	}

	if strings.TrimSpace(c.Currency) == "" {
		errors = append(errors, "currency label cannot be empty")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
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

	if c.AlertSweepInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid alert sweep interval %v: must not be negative", c.AlertSweepInterval))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location resolves Timezone, falling back to UTC. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Language resolves Locale, falling back to French.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.French
	}
	return tag
}

// Strategy resolves QueryStrategy. Call Validate first.
func (c *Config) Strategy() ledger.Strategy {
	s, err := ledger.ParseStrategy(c.QueryStrategy)
	if err != nil {
		return ledger.StrategyPushdown
	}
	return s
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

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
