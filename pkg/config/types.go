package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Oracle  OracleConfig   `yaml:"oracle"`
	Sources []SourceConfig `yaml:"sources"`
	Redis   RedisConfig    `yaml:"redis"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures WebSocket price streaming
type WSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OracleConfig configures the aggregation core
type OracleConfig struct {
	Deadline         Duration       `yaml:"deadline"`           // shared fan-out deadline per aggregation cycle
	CacheTTL         Duration       `yaml:"cache_ttl"`          // freshness bound for cached prices
	HistoryCap       int            `yaml:"history_cap"`        // max historical points retained per symbol
	VarianceAlertPct float64        `yaml:"variance_alert_pct"` // cross-source disagreement alert threshold
	WatchedSymbols   []string       `yaml:"watched_symbols"`    // symbols refreshed in the background and health-checked
	RefreshInterval  Duration       `yaml:"refresh_interval"`   // background refresh cadence
	Health           HealthConfig   `yaml:"health"`
	Attestor         AttestorConfig `yaml:"attestor"`
}

// HealthConfig configures the health monitor thresholds
type HealthConfig struct {
	MinSourceRatio float64 `yaml:"min_source_ratio"` // active/total ratio below which the oracle is unhealthy
	MaxAlerts      int     `yaml:"max_alerts"`       // alert count at or above which the oracle is unhealthy
	MinSources     int     `yaml:"min_sources"`      // per-symbol successful source count below which an alert is raised
}

// AttestorConfig configures price attestation
type AttestorConfig struct {
	// SecretEnv names the environment variable holding the HMAC key.
	// The key itself never appears in configuration files or logs.
	SecretEnv string `yaml:"secret_env"`
}

// SourceConfig configures a price source adapter
type SourceConfig struct {
	Type    string                 `yaml:"type"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config"`
}

// RedisConfig configures optional snapshot persistence
type RedisConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Addr        string   `yaml:"addr"`
	Password    string   `yaml:"password"`
	DB          int      `yaml:"db"`
	SnapshotTTL Duration `yaml:"snapshot_ttl"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
