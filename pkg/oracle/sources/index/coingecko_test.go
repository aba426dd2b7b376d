package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-pricefeed/pkg/oracle/sources"
)

func newCoinGeckoTestAdapter(t *testing.T, handler http.HandlerFunc) sources.Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewCoinGeckoAdapter(map[string]interface{}{"api_url": server.URL})
	require.NoError(t, err)
	return adapter
}

func TestCoinGeckoFetch_Success(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65001.23}}`))
	})

	quote := adapter.Fetch(context.Background(), "BTC")
	require.True(t, quote.Success, "unexpected failure: %s", quote.Error)
	assert.Equal(t, "coingecko", quote.Source)
	assert.Equal(t, "BTC", quote.Symbol)
	assert.True(t, quote.Price.Equal(decimal.NewFromFloat(65001.23)))
}

func TestCoinGeckoFetch_LowercasePassthrough(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "polkadot", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"polkadot":{"usd":7.2}}`))
	})

	quote := adapter.Fetch(context.Background(), "POLKADOT")
	require.True(t, quote.Success)
}

func TestCoinGeckoFetch_SymbolMissingFromResponse(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	quote := adapter.Fetch(context.Background(), "BTC")
	assert.False(t, quote.Success)
}

func TestCoinGeckoFetch_NoUSDQuote(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"eur":60000}}`))
	})

	quote := adapter.Fetch(context.Background(), "BTC")
	assert.False(t, quote.Success)
}

func TestCoinGeckoFetch_ZeroPriceRejected(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":0}}`))
	})

	quote := adapter.Fetch(context.Background(), "BTC")
	assert.False(t, quote.Success)
}

func TestCoinGeckoFetch_HTTPError(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	quote := adapter.Fetch(context.Background(), "BTC")
	assert.False(t, quote.Success)
	assert.Contains(t, quote.Error, "429")
}

func TestCoinGeckoFetch_RateLimitRespectsDeadline(t *testing.T) {
	adapter := newCoinGeckoTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000}}`))
	})

	ctx := context.Background()
	quote := adapter.Fetch(ctx, "BTC")
	require.True(t, quote.Success, "first call uses the burst slot")

	// The second slot is 15s away on the free tier; a short deadline must
	// produce a failed quote instead of stalling the cycle.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	quote = adapter.Fetch(shortCtx, "BTC")
	assert.False(t, quote.Success)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCoinGeckoFetch_ProKeyInQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sekrit", r.URL.Query().Get("x_cg_pro_api_key"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000}}`))
	}))
	t.Cleanup(server.Close)

	adapter, err := NewCoinGeckoAdapter(map[string]interface{}{
		"api_url": server.URL,
		"api_key": "sekrit",
	})
	require.NoError(t, err)

	quote := adapter.Fetch(context.Background(), "BTC")
	require.True(t, quote.Success)
}
