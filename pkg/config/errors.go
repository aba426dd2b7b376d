package config

import "errors"

var (
	// ErrNoSourcesConfigured indicates that no enabled price sources are configured.
	ErrNoSourcesConfigured = errors.New("no enabled price sources configured")
	// ErrInvalidHistoryCap indicates an invalid history cap.
	ErrInvalidHistoryCap = errors.New("history cap must be positive")
	// ErrInvalidDeadline indicates an invalid aggregation deadline.
	ErrInvalidDeadline = errors.New("aggregation deadline must be positive")
	// ErrInvalidCacheTTL indicates an invalid cache TTL.
	ErrInvalidCacheTTL = errors.New("cache TTL must be positive")
	// ErrInvalidVarianceThreshold indicates an invalid variance alert threshold.
	ErrInvalidVarianceThreshold = errors.New("variance alert threshold must be positive")
	// ErrInvalidSourceRatio indicates an out-of-range health source ratio.
	ErrInvalidSourceRatio = errors.New("health min_source_ratio must be in (0, 1]")
	// ErrMissingSourceType indicates a source entry without a type.
	ErrMissingSourceType = errors.New("source entry missing 'type'")
	// ErrMissingSourceName indicates a source entry without a name.
	ErrMissingSourceName = errors.New("source entry missing 'name'")
	// ErrNoWatchedSymbols indicates an empty watched symbol set.
	ErrNoWatchedSymbols = errors.New("no watched symbols configured")
)
