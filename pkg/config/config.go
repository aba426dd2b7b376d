// Package config provides configuration loading and validation for oracled.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file with environment variable expansion.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}

	if cfg.Oracle.Deadline.ToDuration() == 0 {
		cfg.Oracle.Deadline = Duration(5 * time.Second)
	}
	if cfg.Oracle.CacheTTL.ToDuration() == 0 {
		cfg.Oracle.CacheTTL = Duration(60 * time.Second)
	}
	if cfg.Oracle.HistoryCap == 0 {
		cfg.Oracle.HistoryCap = 1000
	}
	if cfg.Oracle.VarianceAlertPct == 0 {
		cfg.Oracle.VarianceAlertPct = 5.0
	}
	if cfg.Oracle.RefreshInterval.ToDuration() == 0 {
		cfg.Oracle.RefreshInterval = Duration(30 * time.Second)
	}
	if cfg.Oracle.Health.MinSourceRatio == 0 {
		cfg.Oracle.Health.MinSourceRatio = 0.5
	}
	if cfg.Oracle.Health.MaxAlerts == 0 {
		cfg.Oracle.Health.MaxAlerts = 3
	}
	if cfg.Oracle.Health.MinSources == 0 {
		cfg.Oracle.Health.MinSources = 2
	}
	if cfg.Oracle.Attestor.SecretEnv == "" {
		cfg.Oracle.Attestor.SecretEnv = "ORACLE_HMAC_SECRET"
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.SnapshotTTL.ToDuration() == 0 {
		cfg.Redis.SnapshotTTL = Duration(24 * time.Hour)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GetString retrieves a string value from the source configuration.
func (sc *SourceConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean from source config.
func (sc *SourceConfig) GetBool(key string, defaultValue bool) bool {
	if val, ok := sc.Config[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}
