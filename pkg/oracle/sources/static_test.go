package sources

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAdapter_Fetch(t *testing.T) {
	adapter, err := NewStaticAdapter(map[string]interface{}{
		"prices": map[string]interface{}{
			"BTC": "65000.12",
			"ETH": 3200.5,
			"SOL": 142,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", adapter.Name())
	assert.Equal(t, SourceTypeStatic, adapter.Type())

	tests := []struct {
		symbol string
		want   float64
	}{
		{"BTC", 65000.12},
		{"ETH", 3200.5},
		{"SOL", 142},
	}
	for _, tt := range tests {
		quote := adapter.Fetch(context.Background(), tt.symbol)
		require.True(t, quote.Success, tt.symbol)
		assert.True(t, quote.Price.Equal(decimal.NewFromFloat(tt.want)), tt.symbol)
	}

	quote := adapter.Fetch(context.Background(), "UNKNOWN")
	assert.False(t, quote.Success)
	assert.False(t, quote.Usable())
}

func TestStaticAdapter_CustomName(t *testing.T) {
	adapter, err := NewStaticAdapter(map[string]interface{}{
		"name":   "devnet",
		"prices": map[string]interface{}{"BTC": "100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "devnet", adapter.Name())
}

func TestNewStaticAdapter_InvalidConfig(t *testing.T) {
	_, err := NewStaticAdapter(map[string]interface{}{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStaticAdapter(map[string]interface{}{
		"prices": map[string]interface{}{"BTC": []string{"nope"}},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStaticAdapter(map[string]interface{}{
		"prices": map[string]interface{}{"BTC": "not-a-number"},
	})
	require.Error(t, err)
}

func TestRegistry_CreateStatic(t *testing.T) {
	adapter, err := Create("static", "fixed", map[string]interface{}{
		"prices": map[string]interface{}{"BTC": "100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", adapter.Name())
	assert.Contains(t, List(), "static.fixed")
}

func TestRegistry_UnknownSource(t *testing.T) {
	_, err := Create("cex", "nonexistent", nil)
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestQuote_Usable(t *testing.T) {
	assert.True(t, Quote{Success: true, Price: decimal.NewFromFloat(1)}.Usable())
	assert.False(t, Quote{Success: true, Price: decimal.Zero}.Usable(), "zero price is never usable")
	assert.False(t, Quote{Success: true, Price: decimal.NewFromFloat(-1)}.Usable())
	assert.False(t, Quote{Success: false, Price: decimal.NewFromFloat(1)}.Usable())
}

func TestProviderSymbol_Fallback(t *testing.T) {
	base := NewBaseAdapter("test", SourceTypeCEX, map[string]string{"BTC": "XBTUSD"}, 0, nil)
	assert.Equal(t, "XBTUSD", base.ProviderSymbol("BTC"))
	assert.Equal(t, "newcoin", base.ProviderSymbol("NEWCOIN"))
}

func TestParseSymbolsFromConfig(t *testing.T) {
	symbols, err := ParseSymbolsFromConfig(map[string]interface{}{
		"symbols": map[string]interface{}{"BTC": "XBT"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "XBT"}, symbols)

	symbols, err = ParseSymbolsFromConfig(map[string]interface{}{})
	require.NoError(t, err)
	assert.Nil(t, symbols, "absent mapping keeps adapter defaults")

	_, err = ParseSymbolsFromConfig(map[string]interface{}{"symbols": "BTC"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGetTimeoutFromConfig(t *testing.T) {
	assert.Equal(t, defaultFetchTimeout, GetTimeoutFromConfig(map[string]interface{}{}))
	assert.Equal(t, defaultFetchTimeout, GetTimeoutFromConfig(map[string]interface{}{"timeout": "garbage"}))
	assert.Equal(t, defaultFetchTimeout, GetTimeoutFromConfig(map[string]interface{}{"timeout": "-1s"}))
	assert.Equal(t, 10*time.Second, GetTimeoutFromConfig(map[string]interface{}{"timeout": "10s"}))
}
