package config

import "fmt"

// Validate checks the configuration for consistency.
func Validate(cfg *Config) error {
	if cfg.Oracle.Deadline.ToDuration() <= 0 {
		return ErrInvalidDeadline
	}
	if cfg.Oracle.CacheTTL.ToDuration() <= 0 {
		return ErrInvalidCacheTTL
	}
	if cfg.Oracle.HistoryCap <= 0 {
		return ErrInvalidHistoryCap
	}
	if cfg.Oracle.VarianceAlertPct <= 0 {
		return ErrInvalidVarianceThreshold
	}
	if r := cfg.Oracle.Health.MinSourceRatio; r <= 0 || r > 1 {
		return ErrInvalidSourceRatio
	}
	if len(cfg.Oracle.WatchedSymbols) == 0 {
		return ErrNoWatchedSymbols
	}

	enabled := 0
	for i, src := range cfg.Sources {
		if src.Type == "" {
			return fmt.Errorf("%w: index %d", ErrMissingSourceType, i)
		}
		if src.Name == "" {
			return fmt.Errorf("%w: index %d", ErrMissingSourceName, i)
		}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoSourcesConfigured
	}

	return nil
}
