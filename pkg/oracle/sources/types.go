package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType represents the class of a price source
type SourceType string

const (
	// SourceTypeCEX is a centralized exchange ticker endpoint.
	SourceTypeCEX SourceType = "cex"
	// SourceTypeIndex is a price index that aggregates coins or DEX pairs.
	SourceTypeIndex SourceType = "index"
	// SourceTypeStatic serves fixed prices from configuration.
	SourceTypeStatic SourceType = "static"
)

// Quote is one adapter's observation of a symbol at a point in time.
// Immutable once constructed: failures are carried in the Success/Error
// fields rather than as returned errors.
type Quote struct {
	Source     string          `json:"source"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	LatencyMS  int64           `json:"latency_ms"`
}

// Usable reports whether the quote can participate in aggregation.
func (q Quote) Usable() bool {
	return q.Success && q.Price.Sign() > 0
}

// Adapter is a single external price feed integration.
type Adapter interface {
	// Name returns the unique name of this adapter
	Name() string

	// Type returns the class of this adapter
	Type() SourceType

	// Fetch performs exactly one outbound call for the given symbol, bounded
	// by ctx. It never returns an error: any network failure, bad status,
	// malformed payload or missing price is converted into a failed Quote.
	Fetch(ctx context.Context, symbol string) Quote
}

// AdapterFactory is a function that creates a new Adapter instance
type AdapterFactory func(config map[string]interface{}) (Adapter, error)
