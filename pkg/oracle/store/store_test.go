package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-pricefeed/pkg/oracle/aggregator"
	"oracle-pricefeed/pkg/oracle/sources"
)

func testPrice(symbol string, price float64, computedAt time.Time) *aggregator.AggregatedPrice {
	return &aggregator.AggregatedPrice{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(price),
		Mean:       decimal.NewFromFloat(price),
		ComputedAt: computedAt,
		Sources: []sources.Quote{
			{Source: "a", Symbol: symbol, Price: decimal.NewFromFloat(price), Success: true},
			{Source: "b", Symbol: symbol, Success: false, Error: "timeout"},
		},
	}
}

func TestGetFresh_FreshnessBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(10, nil, nil)
	s.now = func() time.Time { return now }

	require.True(t, s.Put(context.Background(), testPrice("BTC", 100, now.Add(-59*time.Second))))

	// Younger than maxAge: fresh.
	got, ok := s.GetFresh("BTC", 60*time.Second)
	require.True(t, ok)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(100)))

	// Age exactly equal to maxAge is already stale.
	s.now = func() time.Time { return now.Add(time.Second) }
	_, ok = s.GetFresh("BTC", 60*time.Second)
	assert.False(t, ok)

	// And anything older stays stale.
	s.now = func() time.Time { return now.Add(time.Hour) }
	_, ok = s.GetFresh("BTC", 60*time.Second)
	assert.False(t, ok)
}

func TestGetFresh_UnknownSymbol(t *testing.T) {
	s := New(10, nil, nil)
	_, ok := s.GetFresh("DOGE", time.Minute)
	assert.False(t, ok)
}

func TestLatest_IgnoresAge(t *testing.T) {
	s := New(10, nil, nil)
	old := time.Now().Add(-24 * time.Hour)
	require.True(t, s.Put(context.Background(), testPrice("BTC", 100, old)))

	got, ok := s.Latest("BTC")
	require.True(t, ok)
	assert.Equal(t, old, got.ComputedAt)

	_, ok = s.Latest("ETH")
	assert.False(t, ok)
}

func TestPut_RejectsOutOfOrder(t *testing.T) {
	s := New(10, nil, nil)
	ctx := context.Background()
	now := time.Now()

	require.True(t, s.Put(ctx, testPrice("BTC", 100, now)))

	// Older cycle finishing late must not clobber the newer result.
	assert.False(t, s.Put(ctx, testPrice("BTC", 90, now.Add(-time.Second))))
	assert.False(t, s.Put(ctx, testPrice("BTC", 90, now)), "equal timestamp is not newer")

	got, ok := s.Latest("BTC")
	require.True(t, ok)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(100)))

	// Rejected puts leave no trace in history either.
	assert.Len(t, s.History("BTC", 10), 1)

	assert.True(t, s.Put(ctx, testPrice("BTC", 110, now.Add(time.Second))))
}

func TestHistory_CapEviction(t *testing.T) {
	s := New(3, nil, nil)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.True(t, s.Put(ctx, testPrice("BTC", 100+float64(i), base.Add(time.Duration(i)*time.Second))))
	}

	history := s.History("BTC", 10)
	require.Len(t, history, 3, "history must be bounded by the cap")

	// Oldest points evicted, remainder chronological.
	assert.True(t, history[0].Price.Equal(decimal.NewFromFloat(102)))
	assert.True(t, history[1].Price.Equal(decimal.NewFromFloat(103)))
	assert.True(t, history[2].Price.Equal(decimal.NewFromFloat(104)))
	assert.True(t, history[0].Timestamp.Before(history[1].Timestamp))
	assert.True(t, history[1].Timestamp.Before(history[2].Timestamp))
}

func TestHistory_LimitAndMissingSymbol(t *testing.T) {
	s := New(10, nil, nil)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 4; i++ {
		require.True(t, s.Put(ctx, testPrice("BTC", 100+float64(i), base.Add(time.Duration(i)*time.Second))))
	}

	history := s.History("BTC", 2)
	require.Len(t, history, 2)
	assert.True(t, history[0].Price.Equal(decimal.NewFromFloat(102)))
	assert.True(t, history[1].Price.Equal(decimal.NewFromFloat(103)))

	assert.Empty(t, s.History("ETH", 10))
	assert.Empty(t, s.History("BTC", 0))
}

func TestHistory_ProjectsSourceCount(t *testing.T) {
	s := New(10, nil, nil)
	require.True(t, s.Put(context.Background(), testPrice("BTC", 100, time.Now())))

	history := s.History("BTC", 1)
	require.Len(t, history, 1)
	assert.Equal(t, "BTC", history[0].Symbol)
	assert.Equal(t, 1, history[0].SourceCount, "only successful quotes count")
}

func TestPut_ConcurrentSymbols(t *testing.T) {
	s := New(100, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			base := time.Now()
			for j := 0; j < 50; j++ {
				s.Put(ctx, testPrice(symbol, float64(j), base.Add(time.Duration(j)*time.Millisecond)))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		got, ok := s.Latest(symbol)
		require.True(t, ok, symbol)
		assert.True(t, got.Price.Equal(decimal.NewFromFloat(49)))
		assert.Len(t, s.History(symbol, 100), 50)
	}
}
