package config

import (
	"fmt"
	"time"

	"minesweeper/adapters/sqlx"
)

// ProfileConfig returns the preset for a named deployment profile.
func ProfileConfig(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch name {
	case "development", "default":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Format = "text"
		cfg.Logging.Level = "debug"
	case "testing":
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Storage.Adapter = "memory"
		cfg.Analytics.Enabled = false
	case "staging":
		cfg.Environment = EnvStaging
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverMySQL)
		cfg.Security.EnableRateLimit = true
	case "production":
		cfg.Environment = EnvProduction
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverMySQL)
		cfg.Server.CORSOrigin = ""
		cfg.Server.ShutdownTimeout = 15 * time.Second
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}

// LoadProfile loads a profile preset, applies environment overrides and
// validates the result.
func LoadProfile(name string) (*Config, error) {
	cfg, err := ProfileConfig(name)
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
