// Package health derives oracle status snapshots from cached prices.
package health

import (
	"fmt"
	"time"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle/store"
)

// Status is a derived, non-persisted snapshot of oracle health. Recomputed
// on every invocation, never cached.
type Status struct {
	IsHealthy     bool      `json:"is_healthy"`
	TotalSources  int       `json:"total_sources"`
	ActiveSources int       `json:"active_sources"`
	LastUpdate    time.Time `json:"last_update"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Alerts        []string  `json:"alerts"`
}

// Thresholds holds the health policy constants. The defaults (ratio 0.5,
// max 3 alerts, min 2 sources per symbol) are deliberate policy choices.
type Thresholds struct {
	MinSourceRatio   float64
	MaxAlerts        int
	MinSources       int
	VarianceAlertPct float64
}

// Monitor inspects cached state across a watched symbol set. Purely a
// read-side diagnostic: it never mutates the store and never triggers
// aggregation.
type Monitor struct {
	store      *store.Store
	thresholds Thresholds
	started    time.Time
	logger     *logging.Logger
}

// NewMonitor creates a health monitor over the store.
func NewMonitor(s *store.Store, thresholds Thresholds, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Monitor{
		store:      s,
		thresholds: thresholds,
		started:    time.Now(),
		logger:     logger,
	}
}

// Status tallies source availability and variance anomalies across the
// watched symbols' last-known source sets.
func (m *Monitor) Status(symbols []string) Status {
	var (
		total      int
		active     int
		lastUpdate time.Time
		alerts     []string
	)

	for _, symbol := range symbols {
		price, ok := m.store.Latest(symbol)
		if !ok {
			continue
		}

		succeeded := price.SuccessfulSources()
		total += len(price.Sources)
		active += succeeded

		if price.ComputedAt.After(lastUpdate) {
			lastUpdate = price.ComputedAt
		}

		if price.VariancePercent > m.thresholds.VarianceAlertPct {
			alerts = append(alerts, fmt.Sprintf("high variance: %s at %.2f%% (threshold %.2f%%)",
				symbol, price.VariancePercent, m.thresholds.VarianceAlertPct))
		}
		if succeeded < m.thresholds.MinSources {
			alerts = append(alerts, fmt.Sprintf("low source count: %s %d/%d sources succeeded",
				symbol, succeeded, len(price.Sources)))
		}
	}

	healthy := float64(active) >= float64(total)*m.thresholds.MinSourceRatio &&
		len(alerts) < m.thresholds.MaxAlerts

	metrics.SetSourceGauges(active, total)

	return Status{
		IsHealthy:     healthy,
		TotalSources:  total,
		ActiveSources: active,
		LastUpdate:    lastUpdate,
		UptimeSeconds: time.Since(m.started).Seconds(),
		Alerts:        alerts,
	}
}
