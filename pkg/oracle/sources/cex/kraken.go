package cex

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/oracle/sources"
)

const krakenBaseURL = "https://api.kraken.com"

// krakenDefaultSymbols maps canonical symbols to Kraken pair codes.
var krakenDefaultSymbols = map[string]string{
	"BTC":  "XXBTZUSD",
	"ETH":  "XETHZUSD",
	"SOL":  "SOLUSD",
	"XRP":  "XXRPZUSD",
	"ADA":  "ADAUSD",
	"DOGE": "XDGUSD",
	"LINK": "LINKUSD",
}

// KrakenAdapter fetches ticker prices from the Kraken public API.
type KrakenAdapter struct {
	*sources.BaseAdapter
	apiURL string
}

// krakenTicker holds the fields we use from a Kraken ticker entry.
type krakenTicker struct {
	C []string `json:"c"` // last trade [price, lot volume]
}

// krakenResponse is the /0/public/Ticker response shape.
type krakenResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

// NewKrakenAdapter creates a new Kraken ticker adapter.
func NewKrakenAdapter(config map[string]interface{}) (sources.Adapter, error) {
	logger := sources.GetLoggerFromConfig(config)

	symbols, err := sources.ParseSymbolsFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("kraken: %w", err)
	}
	if symbols == nil {
		symbols = krakenDefaultSymbols
	}

	apiURL := krakenBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	base := sources.NewBaseAdapter("kraken", sources.SourceTypeCEX, symbols, sources.GetTimeoutFromConfig(config), logger)

	return &KrakenAdapter{
		BaseAdapter: base,
		apiURL:      apiURL,
	}, nil
}

// Fetch retrieves the last trade price for one symbol.
func (a *KrakenAdapter) Fetch(ctx context.Context, symbol string) sources.Quote {
	start := time.Now()

	pair := a.ProviderSymbol(symbol)
	endpoint := fmt.Sprintf("%s/0/public/Ticker?pair=%s", a.apiURL, url.QueryEscape(pair))

	var resp krakenResponse
	if err := a.GetJSON(ctx, endpoint, &resp); err != nil {
		return a.Failure(symbol, start, err)
	}

	if len(resp.Error) > 0 {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrAPIError, strings.Join(resp.Error, "; ")))
	}

	// Kraken keys the result by its own pair naming, which does not always
	// match the requested pair exactly. A single-pair query returns one entry.
	for _, ticker := range resp.Result {
		if len(ticker.C) == 0 {
			continue
		}
		price, err := decimal.NewFromString(ticker.C[0])
		if err != nil {
			return a.Failure(symbol, start, fmt.Errorf("%w: price %q", sources.ErrInvalidResponse, ticker.C[0]))
		}
		if price.Sign() <= 0 {
			return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrZeroPrice, ticker.C[0]))
		}
		return a.Observation(symbol, price, start)
	}

	return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrNoPriceForSymbol, pair))
}

func init() {
	sources.Register("cex.kraken", NewKrakenAdapter)
}
