package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"minesweeper/adapters/redis"
	"minesweeper/adapters/sqlx"
	"minesweeper/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" yaml:"environment" env:"ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"PROFILE"`

	Server      ServerConfig      `json:"server" yaml:"server" envPrefix:"SERVER_"`
	Storage     StorageConfig     `json:"storage" yaml:"storage" envPrefix:"STORAGE_"`
	Leaderboard LeaderboardConfig `json:"leaderboard" yaml:"leaderboard" envPrefix:"LEADERBOARD_"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" envPrefix:"LOG_"`
	Security    SecurityConfig    `json:"security" yaml:"security" envPrefix:"SECURITY_"`
	Webhooks    WebhookConfig     `json:"webhooks" yaml:"webhooks" envPrefix:"WEBHOOK_"`
	Analytics   AnalyticsConfig   `json:"analytics" yaml:"analytics" envPrefix:"ANALYTICS_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" yaml:"cors_origin" env:"CORS_ORIGIN"`
	EnableWebSocket   bool          `json:"enable_websocket" yaml:"enable_websocket" env:"ENABLE_WEBSOCKET"`
	MaxBodyBytes      int64         `json:"max_body_bytes" yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" yaml:"adapter" env:"ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty" yaml:"redis,omitempty" envPrefix:"REDIS_"`
	SQL     sqlx.Config  `json:"sql,omitempty" yaml:"sql,omitempty" envPrefix:"SQL_"`
	File    FileConfig   `json:"file,omitempty" yaml:"file,omitempty" envPrefix:"FILE_"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" yaml:"path" env:"PATH"`
}

// LeaderboardConfig controls reads of the ranking.
type LeaderboardConfig struct {
	Limit             int             `json:"limit" yaml:"limit" env:"LIMIT"`
	DefaultDifficulty core.Difficulty `json:"default_difficulty" yaml:"default_difficulty" env:"DEFAULT_DIFFICULTY"`
	AsyncEvents       bool            `json:"async_events" yaml:"async_events" env:"ASYNC_EVENTS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" env:"ATTRIBUTES"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" envPrefix:"RATE_LIMIT_"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"RPM"`
	BurstSize         int `json:"burst_size" yaml:"burst_size" env:"BURST"`
}

// WebhookConfig lists endpoints notified of accepted entries.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" yaml:"endpoints,omitempty" env:"ENDPOINTS"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
}

// AnalyticsConfig controls submission statistics and their export.
type AnalyticsConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	ExportInterval time.Duration `json:"export_interval" yaml:"export_interval" env:"EXPORT_INTERVAL"`
	ExportEndpoint string        `json:"export_endpoint,omitempty" yaml:"export_endpoint,omitempty" env:"EXPORT_ENDPOINT"`
	ExportAPIKey   string        `json:"export_api_key,omitempty" yaml:"export_api_key,omitempty" env:"EXPORT_API_KEY"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) (fileFormat, error) {
	if path == "" {
		return 0, errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	var format fileFormat
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json":
		format = formatJSON
	case ".yaml", ".yml":
		format = formatYAML
	default:
		return 0, errors.New("config file must have .json, .yaml or .yml extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return 0, fmt.Errorf("config file not accessible: %w", err)
	}

	return format, nil
}

// LoadFromFile loads configuration from a JSON or YAML file. Environment
// variables override file values.
func LoadFromFile(path string) (*Config, error) {
	format, err := validateConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch format {
	case formatYAML:
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			EnableWebSocket:   true,
			MaxBodyBytes:      1 << 16,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "sql",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverSQLite),
			File: FileConfig{
				Path: "./data/leaderboard.json",
			},
		},
		Leaderboard: LeaderboardConfig{
			Limit:             20,
			DefaultDifficulty: core.DefaultDifficulty,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
		},
		Webhooks: WebhookConfig{
			Timeout: 2 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled: true,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if err := c.Analytics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("analytics config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

const redacted = "[REDACTED]"

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = redacted
	}
	if cfg.Storage.SQL.Password != "" {
		cfg.Storage.SQL.Password = redacted
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = redacted
	}
	if cfg.Analytics.ExportAPIKey != "" {
		cfg.Analytics.ExportAPIKey = redacted
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
