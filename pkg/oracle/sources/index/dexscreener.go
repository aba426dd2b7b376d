package index

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/oracle/sources"
)

const dexscreenerBaseURL = "https://api.dexscreener.com"

// dexscreenerDefaultSymbols maps canonical symbols to pair search queries.
// Wrapped variants are used where the canonical asset has no native DEX pair.
var dexscreenerDefaultSymbols = map[string]string{
	"BTC": "WBTC/USDC",
	"ETH": "WETH/USDC",
	"SOL": "SOL/USDC",
}

// DexScreenerAdapter fetches prices from the DexScreener pair search API,
// selecting the deepest-liquidity pair for the queried symbol.
type DexScreenerAdapter struct {
	*sources.BaseAdapter
	apiURL string
}

// dexscreenerPair holds the fields we use from a pair entry.
type dexscreenerPair struct {
	PriceUSD  string `json:"priceUsd"`
	BaseToken struct {
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// dexscreenerResponse is the /latest/dex/search response shape.
type dexscreenerResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
}

// NewDexScreenerAdapter creates a new DexScreener adapter.
func NewDexScreenerAdapter(config map[string]interface{}) (sources.Adapter, error) {
	logger := sources.GetLoggerFromConfig(config)

	symbols, err := sources.ParseSymbolsFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("dexscreener: %w", err)
	}
	if symbols == nil {
		symbols = dexscreenerDefaultSymbols
	}

	apiURL := dexscreenerBaseURL
	if u, ok := config["api_url"].(string); ok && u != "" {
		apiURL = u
	}

	base := sources.NewBaseAdapter("dexscreener", sources.SourceTypeIndex, symbols, sources.GetTimeoutFromConfig(config), logger)

	return &DexScreenerAdapter{
		BaseAdapter: base,
		apiURL:      apiURL,
	}, nil
}

// Fetch retrieves the USD price of the deepest matching pair for one symbol.
func (a *DexScreenerAdapter) Fetch(ctx context.Context, symbol string) sources.Quote {
	start := time.Now()

	query := a.ProviderSymbol(symbol)
	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", a.apiURL, url.QueryEscape(query))

	var resp dexscreenerResponse
	if err := a.GetJSON(ctx, endpoint, &resp); err != nil {
		return a.Failure(symbol, start, err)
	}
	if len(resp.Pairs) == 0 {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrNoPriceForSymbol, query))
	}

	base := baseOfQuery(query)
	var best *dexscreenerPair
	for i := range resp.Pairs {
		pair := &resp.Pairs[i]
		if base != "" && !strings.EqualFold(pair.BaseToken.Symbol, base) {
			continue
		}
		if best == nil || pair.Liquidity.USD > best.Liquidity.USD {
			best = pair
		}
	}
	if best == nil {
		return a.Failure(symbol, start, fmt.Errorf("%w: no pair matching %s", sources.ErrNoPriceForSymbol, query))
	}

	price, err := decimal.NewFromString(best.PriceUSD)
	if err != nil {
		return a.Failure(symbol, start, fmt.Errorf("%w: price %q", sources.ErrInvalidResponse, best.PriceUSD))
	}
	if price.Sign() <= 0 {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", sources.ErrZeroPrice, best.PriceUSD))
	}

	return a.Observation(symbol, price, start)
}

// baseOfQuery extracts the base token from a "BASE/QUOTE" search query.
func baseOfQuery(query string) string {
	if i := strings.Index(query, "/"); i > 0 {
		return query[:i]
	}
	return query
}

func init() {
	sources.Register("index.dexscreener", NewDexScreenerAdapter)
}
