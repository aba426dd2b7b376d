// Package aggregator reconciles quotes from independent sources into a
// single price with a confidence score.
package aggregator

import "errors"

var (
	// ErrNoDataAvailable indicates that every source failed for a symbol in
	// this cycle. The caller decides whether to serve a stale cached value.
	ErrNoDataAvailable = errors.New("no data available")
	// ErrNoAdapters indicates that no source adapters were configured.
	ErrNoAdapters = errors.New("no source adapters configured")
)
