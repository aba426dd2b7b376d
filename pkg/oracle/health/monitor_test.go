package health

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-pricefeed/pkg/oracle/aggregator"
	"oracle-pricefeed/pkg/oracle/sources"
	"oracle-pricefeed/pkg/oracle/store"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		MinSourceRatio:   0.5,
		MaxAlerts:        3,
		MinSources:       2,
		VarianceAlertPct: 5.0,
	}
}

func storedPrice(t *testing.T, s *store.Store, symbol string, variance float64, succeeded, total int, at time.Time) {
	t.Helper()
	quotes := make([]sources.Quote, 0, total)
	for i := 0; i < total; i++ {
		quotes = append(quotes, sources.Quote{
			Source:  string(rune('a' + i)),
			Symbol:  symbol,
			Price:   decimal.NewFromFloat(100),
			Success: i < succeeded,
		})
	}
	require.True(t, s.Put(context.Background(), &aggregator.AggregatedPrice{
		Symbol:          symbol,
		Price:           decimal.NewFromFloat(100),
		VariancePercent: variance,
		Sources:         quotes,
		ComputedAt:      at,
	}))
}

func TestStatus_Healthy(t *testing.T) {
	s := store.New(10, nil, nil)
	now := time.Now()
	storedPrice(t, s, "BTC", 0.5, 4, 4, now)
	storedPrice(t, s, "ETH", 1.2, 3, 4, now.Add(time.Second))

	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC", "ETH"})

	assert.True(t, status.IsHealthy)
	assert.Equal(t, 8, status.TotalSources)
	assert.Equal(t, 7, status.ActiveSources)
	assert.Empty(t, status.Alerts)
	assert.True(t, status.LastUpdate.Equal(now.Add(time.Second)), "last update is the newest across symbols")
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestStatus_HighVarianceAlert(t *testing.T) {
	s := store.New(10, nil, nil)
	storedPrice(t, s, "BTC", 7.5, 4, 4, time.Now())

	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC"})

	require.Len(t, status.Alerts, 1)
	assert.Contains(t, status.Alerts[0], "high variance")
	assert.Contains(t, status.Alerts[0], "BTC")
	assert.True(t, status.IsHealthy, "one alert is below the max-alerts threshold")
}

func TestStatus_LowSourceCountAlert(t *testing.T) {
	s := store.New(10, nil, nil)
	storedPrice(t, s, "BTC", 0.5, 1, 4, time.Now())

	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC"})

	require.Len(t, status.Alerts, 1)
	assert.Contains(t, status.Alerts[0], "low source count")
	assert.False(t, status.IsHealthy, "1/4 active sources is below the 0.5 ratio")
}

func TestStatus_UnhealthyWhenAlertsAccumulate(t *testing.T) {
	s := store.New(10, nil, nil)
	now := time.Now()
	// Each symbol trips both the variance and the source-count alert while
	// keeping the aggregate source ratio at exactly 0.5.
	storedPrice(t, s, "BTC", 9.0, 1, 2, now)
	storedPrice(t, s, "ETH", 8.0, 1, 2, now)

	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC", "ETH"})

	assert.Len(t, status.Alerts, 4)
	assert.False(t, status.IsHealthy, "alert count at or above the max marks the oracle unhealthy")
	assert.Equal(t, 2, status.ActiveSources)
	assert.Equal(t, 4, status.TotalSources)
}

func TestStatus_SkipsSymbolsWithoutData(t *testing.T) {
	s := store.New(10, nil, nil)
	storedPrice(t, s, "BTC", 0.5, 3, 4, time.Now())

	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC", "NEVER_SEEN"})

	assert.Equal(t, 4, status.TotalSources)
	assert.Equal(t, 3, status.ActiveSources)
	assert.Empty(t, status.Alerts)
}

func TestStatus_EmptyStore(t *testing.T) {
	s := store.New(10, nil, nil)
	m := NewMonitor(s, defaultThresholds(), nil)
	status := m.Status([]string{"BTC", "ETH"})

	// 0 >= 0*ratio holds, so an oracle with no data yet reports healthy
	// rather than flapping during startup.
	assert.True(t, status.IsHealthy)
	assert.Zero(t, status.TotalSources)
	assert.True(t, status.LastUpdate.IsZero())
}
