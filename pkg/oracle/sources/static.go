package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StaticAdapter serves fixed prices from configuration. Used in development
// configs and integration tests where live feeds are undesirable.
type StaticAdapter struct {
	*BaseAdapter
	prices map[string]decimal.Decimal
}

// NewStaticAdapter creates a static adapter from config.
// Expected format: prices: { "BTC": "65000.12", "ETH": 3200.5 }.
func NewStaticAdapter(config map[string]interface{}) (Adapter, error) {
	logger := GetLoggerFromConfig(config)

	raw, ok := config["prices"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: 'prices' map required", ErrInvalidConfig)
	}

	prices := make(map[string]decimal.Decimal, len(raw))
	for symbol, v := range raw {
		var price decimal.Decimal
		var err error
		switch val := v.(type) {
		case string:
			price, err = decimal.NewFromString(val)
		case float64:
			price = decimal.NewFromFloat(val)
		case int:
			price = decimal.NewFromInt(int64(val))
		default:
			err = fmt.Errorf("%w: price for %s is %T", ErrInvalidConfig, symbol, v)
		}
		if err != nil {
			return nil, err
		}
		prices[symbol] = price
	}

	name := "fixed"
	if n, ok := config["name"].(string); ok && n != "" {
		name = n
	}

	return &StaticAdapter{
		BaseAdapter: NewBaseAdapter(name, SourceTypeStatic, nil, 0, logger),
		prices:      prices,
	}, nil
}

// Fetch returns the configured price for the symbol, or a failed quote when
// none is configured.
func (a *StaticAdapter) Fetch(_ context.Context, symbol string) Quote {
	start := time.Now()
	price, ok := a.prices[symbol]
	if !ok {
		return a.Failure(symbol, start, fmt.Errorf("%w: %s", ErrNoPriceForSymbol, symbol))
	}
	return a.Observation(symbol, price, start)
}

func init() {
	Register("static.fixed", NewStaticAdapter)
}
