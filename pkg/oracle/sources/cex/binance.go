// Package cex provides centralized-exchange ticker adapters.
package cex

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/oracle/sources"
)

const binanceBaseURL = "https://api.binance.com"

// binanceDefaultSymbols maps canonical symbols to Binance USDT tickers.
var binanceDefaultSymbols = map[string]string{
	"BTC":  "BTCUSDT",
	"ETH":  "ETHUSDT",
	"SOL":  "SOLUSDT",
	"BNB":  "BNBUSDT",
	"XRP":  "XRPUSDT",
	"ADA":  "ADAUSDT",
	"DOGE": "DOGEUSDT",
	"LINK": "LINKUSDT",
}

// BinanceAdapter fetches single-symbol ticker prices from Binance.
type BinanceAdapter struct {
	*sources.BaseAdapter
	apiURL string
}

// binanceTicker is the /api/v3/ticker/price response shape.
type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewBinanceAdapter creates a new Binance ticker adapter.
func NewBinanceAdapter(config map[string]interface{}) (sources.Adapter, error) {
	logger := sources.GetLoggerFromConfig(config)

	symbols, err := sources.ParseSymbolsFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}
	if symbols == nil {
		symbols = binanceDefaultSymbols
	}

	apiURL := binanceBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	base := sources.NewBaseAdapter("binance", sources.SourceTypeCEX, symbols, sources.GetTimeoutFromConfig(config), logger)

	return &BinanceAdapter{
		BaseAdapter: base,
		apiURL:      apiURL,
	}, nil
}

// Fetch retrieves the current ticker price for one symbol.
func (a *BinanceAdapter) Fetch(ctx context.Context, symbol string) sources.Quote {
	start := time.Now()

	pair := a.ProviderSymbol(symbol)
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", a.apiURL, url.QueryEscape(pair))

	var ticker binanceTicker
	if err := a.GetJSON(ctx, endpoint, &ticker); err != nil {
		return a.Failure(symbol, start, err)
	}

	if ticker.Price == "" {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrNoPriceForSymbol, pair))
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return a.Failure(symbol, start, fmt.Errorf("%w: price %q", sources.ErrInvalidResponse, ticker.Price))
	}
	if price.Sign() <= 0 {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrZeroPrice, ticker.Price))
	}

	return a.Observation(symbol, price, start)
}

func init() {
	sources.Register("cex.binance", NewBinanceAdapter)
}
