// Package index provides adapters for price index APIs that aggregate
// coins or DEX pairs.
package index

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"oracle-pricefeed/pkg/oracle/sources"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"

	// Free API allows roughly 4 calls per minute before throttling.
	coingeckoFreeInterval = 15 * time.Second
	coingeckoProInterval  = 2 * time.Second
)

// coingeckoDefaultSymbols maps canonical symbols to CoinGecko coin ids.
// Unmapped symbols fall through as lowercase, which matches CoinGecko's id
// scheme for most coins ("chainlink", "polkadot", ...).
var coingeckoDefaultSymbols = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"LINK": "chainlink",
}

// CoinGeckoAdapter fetches USD prices from the CoinGecko simple price API.
type CoinGeckoAdapter struct {
	*sources.BaseAdapter
	apiURL  string
	apiKey  string
	limiter *rate.Limiter
}

// NewCoinGeckoAdapter creates a new CoinGecko adapter. Without an API key
// the free-tier rate limit is enforced locally so we never get throttled.
func NewCoinGeckoAdapter(config map[string]interface{}) (sources.Adapter, error) {
	logger := sources.GetLoggerFromConfig(config)

	symbols, err := sources.ParseSymbolsFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}
	if symbols == nil {
		symbols = coingeckoDefaultSymbols
	}

	apiURL := coingeckoBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	apiKey, _ := config["api_key"].(string)
	interval := coingeckoFreeInterval
	if apiKey != "" {
		interval = coingeckoProInterval
	}

	base := sources.NewBaseAdapter("coingecko", sources.SourceTypeIndex, symbols, sources.GetTimeoutFromConfig(config), logger)

	return &CoinGeckoAdapter{
		BaseAdapter: base,
		apiURL:      apiURL,
		apiKey:      apiKey,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Fetch retrieves the current USD price for one symbol.
func (a *CoinGeckoAdapter) Fetch(ctx context.Context, symbol string) sources.Quote {
	start := time.Now()

	// Waiting for a rate slot counts against the shared deadline; a cycle
	// that cannot get one in time reports a failed quote, not a stall.
	if err := a.limiter.Wait(ctx); err != nil {
		return a.Failure(symbol, start, fmt.Errorf("rate limit wait: %w", err))
	}

	id := a.ProviderSymbol(symbol)
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", a.apiURL, url.QueryEscape(id))
	if a.apiKey != "" {
		endpoint += "&x_cg_pro_api_key=" + url.QueryEscape(a.apiKey)
	}

	var resp map[string]map[string]decimal.Decimal
	if err := a.GetJSON(ctx, endpoint, &resp); err != nil {
		return a.Failure(symbol, start, err)
	}

	quotes, ok := resp[id]
	if !ok {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrNoPriceForSymbol, id))
	}
	price, ok := quotes["usd"]
	if !ok {
		return a.Failure(symbol, start, fmt.Errorf("%w: no usd quote for %s", sources.ErrInvalidResponse, id))
	}
	if price.Sign() <= 0 {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrZeroPrice, price.String()))
	}

	return a.Observation(symbol, price, start)
}

func init() {
	sources.Register("index.coingecko", NewCoinGeckoAdapter)
}
