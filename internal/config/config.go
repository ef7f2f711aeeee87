package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"moneymind/internal/core"
	"moneymind/internal/log"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string // CIDRs allowed to set X-Forwarded-For

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP change relay, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string

	// Identity
	JWTSecret string
	JWTIssuer string

	// Finance rules
	FeasibilityHighMax   float64
	FeasibilityMediumMax float64
	NudgeListLimit       int

	// Spending cache
	SummaryCacheTTL  time.Duration
	SummaryCacheSize int

	LogLevel string

	// File is the YAML file the values were layered on, if any.
	File string
}

// fileSettings is the optional YAML layer. Environment variables win over it.
type fileSettings struct {
	Feasibility struct {
		HighMax   *float64 `yaml:"high_max"`
		MediumMax *float64 `yaml:"medium_max"`
	} `yaml:"feasibility"`
	Nudges struct {
		ListLimit *int `yaml:"list_limit"`
	} `yaml:"nudges"`
}

// Load builds the configuration from defaults, then the YAML file named by
// MONEYMIND_CONFIG, then environment variables.
func Load() (*Config, error) {
	th := core.DefaultFeasibilityThresholds()
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneymind.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneymind.changes"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		FeasibilityHighMax:   th.HighMax,
		FeasibilityMediumMax: th.MediumMax,
		NudgeListLimit:       10,

		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", time.Minute),
		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 1000),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		File:     getEnv("MONEYMIND_CONFIG", ""),
	}

	if cfg.File != "" {
		if err := cfg.applyFile(cfg.File); err != nil {
			return nil, err
		}
	}

	cfg.FeasibilityHighMax = getEnvFloat("FEASIBILITY_HIGH_MAX", cfg.FeasibilityHighMax)
	cfg.FeasibilityMediumMax = getEnvFloat("FEASIBILITY_MEDIUM_MAX", cfg.FeasibilityMediumMax)
	cfg.NudgeListLimit = getEnvInt("NUDGE_LIST_LIMIT", cfg.NudgeListLimit)

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fs.Feasibility.HighMax != nil {
		c.FeasibilityHighMax = *fs.Feasibility.HighMax
	}
	if fs.Feasibility.MediumMax != nil {
		c.FeasibilityMediumMax = *fs.Feasibility.MediumMax
	}
	if fs.Nudges.ListLimit != nil {
		c.NudgeListLimit = *fs.Nudges.ListLimit
	}
	return nil
}

// Thresholds returns the configured feasibility bands.
func (c *Config) Thresholds() core.FeasibilityThresholds {
	return core.FeasibilityThresholds{HighMax: c.FeasibilityHighMax, MediumMax: c.FeasibilityMediumMax}
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

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
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
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 bytes")
	}

	if err := c.Thresholds().Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid feasibility thresholds: %v", err))
	}

	if c.NudgeListLimit < 1 || c.NudgeListLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid nudge list limit %d: must be between 1 and 100", c.NudgeListLimit))
	}

	if c.SummaryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: cannot be negative", c.SummaryCacheTTL))
	}
	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 10.0.0.0/8", cidr))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
