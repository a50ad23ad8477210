package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development", "testing" or "production"
	SecretKey   string            `toml:"secret_key"`  // Session signing key (required in production)
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	HTTP        HTTPClientConfig  `toml:"http"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
	Crawler     CrawlerConfig     `toml:"crawler"`
	Search      SearchConfig      `toml:"search"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Path           string `toml:"path"`             // Badger database directory
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// HTTPClientConfig tunes the shared HTTP client pool
type HTTPClientConfig struct {
	MaxConnections int           `toml:"max_connections"` // Connection cap for the shared transport
	RequestTimeout time.Duration `toml:"request_timeout"` // Total per-request timeout
	UserAgent      string        `toml:"user_agent"`
	MaxBodySize    int64         `toml:"max_body_size"` // Maximum response body size in bytes
}

// RateLimitConfig parameterizes the per-domain token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"` // Steady refill rate
	Burst             float64 `toml:"burst"`               // Bucket capacity
}

type CrawlerConfig struct {
	MaxPages     int           `toml:"max_pages"`     // Upper bound on pages per search
	FetchTimeout time.Duration `toml:"fetch_timeout"` // Per-fetch timeout during discovery
}

type SearchConfig struct {
	Concurrency      int           `toml:"concurrency"`       // Concurrent per-URL workers
	CacheTTL         time.Duration `toml:"cache_ttl"`         // Result cache entry lifetime
	StateTTL         time.Duration `toml:"state_ttl"`         // Idle search state lifetime
	ProgressInterval time.Duration `toml:"progress_interval"` // WebSocket state_update tick
	CacheSizeLimitMB float64       `toml:"cache_size_limit_mb"`
}

// MaintenanceConfig schedules background cache and state housekeeping
type MaintenanceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings need to appear in seeker.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 5000,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		HTTP: HTTPClientConfig{
			MaxConnections: 100,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (compatible; SeekerBot/1.0)",
			MaxBodySize:    500_000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Crawler: CrawlerConfig{
			MaxPages:     100,
			FetchTimeout: 10 * time.Second,
		},
		Search: SearchConfig{
			Concurrency:      10,
			CacheTTL:         24 * time.Hour,
			StateTTL:         time.Hour,
			ProgressInterval: 500 * time.Millisecond,
			CacheSizeLimitMB: 100,
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "0 */5 * * * *", // Every 5 minutes (cron format with seconds)
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment preset (highest priority: SEEKER_ENV, fallback: GO_ENV)
	env := os.Getenv("SEEKER_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env != "" {
		config.Environment = env
	}
	applyEnvironmentPreset(config)

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			config.Server.Port = p
		}
	}

	if path := os.Getenv("SEEKER_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	if level := os.Getenv("SEEKER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("SECRET_KEY"); key != "" {
		config.SecretKey = key
	}
}

// applyEnvironmentPreset adjusts tuning parameters for the selected
// environment. Values mirror the development/testing/production presets.
func applyEnvironmentPreset(config *Config) {
	switch config.Environment {
	case "testing":
		config.Crawler.MaxPages = 10
		config.Search.Concurrency = 5
		config.HTTP.RequestTimeout = 30 * time.Second
	case "production":
		config.Crawler.MaxPages = 100
		config.Search.Concurrency = 50
		config.HTTP.RequestTimeout = 60 * time.Second
	default:
		config.Crawler.MaxPages = 100
		config.Search.Concurrency = 10
		config.HTTP.RequestTimeout = 30 * time.Second
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks configuration invariants that would otherwise surface as
// runtime failures deep in the pipeline.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1")
	}
	if c.Crawler.MaxPages < 1 {
		return fmt.Errorf("crawler.max_pages must be at least 1")
	}
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("search.concurrency must be at least 1")
	}
	if c.Environment == "production" && c.SecretKey == "" {
		return fmt.Errorf("secret_key is required in production")
	}
	return nil
}
