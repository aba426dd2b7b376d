package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle/attestor"
	"oracle-pricefeed/pkg/oracle/sources"
)

// AggregatedPrice is the reconciled result of one aggregation cycle for one
// symbol. Immutable once constructed; superseded by the next cycle's result.
type AggregatedPrice struct {
	Symbol          string             `json:"symbol"`
	Price           decimal.Decimal    `json:"price"` // median of successful quotes
	Mean            decimal.Decimal    `json:"mean"`
	VariancePercent float64            `json:"variance_percent"`
	Sources         []sources.Quote    `json:"sources"`
	ComputedAt      time.Time          `json:"computed_at"`
	Signature       attestor.Signature `json:"signature,omitempty"`
	Confidence      float64            `json:"confidence"`
}

// SuccessfulSources counts the quotes that participated in the price.
func (p *AggregatedPrice) SuccessfulSources() int {
	count := 0
	for _, q := range p.Sources {
		if q.Usable() {
			count++
		}
	}
	return count
}

// Aggregator fans out to all configured adapters concurrently and reconciles
// whatever returns within the deadline.
type Aggregator struct {
	adapters []sources.Adapter
	deadline time.Duration
	alertPct float64
	logger   *logging.Logger
}

// New creates an aggregator over the given adapters.
func New(adapters []sources.Adapter, deadline time.Duration, alertPct float64, logger *logging.Logger) (*Aggregator, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Aggregator{
		adapters: adapters,
		deadline: deadline,
		alertPct: alertPct,
		logger:   logger,
	}, nil
}

// Aggregate fetches the symbol from every adapter concurrently, computes
// median, mean, variance and confidence over the successful quotes and
// returns the unsigned AggregatedPrice. Fails with ErrNoDataAvailable when
// every adapter fails; a price is never synthesized from no data.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) (*AggregatedPrice, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	// Buffered to adapter count so stragglers finishing after the deadline
	// never block; their quotes are simply dropped with the cycle. The
	// context deadline propagates into each adapter's outbound request, so
	// losing calls are cancelled rather than left running.
	results := make(chan sources.Quote, len(a.adapters))
	for _, adapter := range a.adapters {
		go func(ad sources.Adapter) {
			results <- ad.Fetch(ctx, symbol)
		}(adapter)
	}

	quotes := make([]sources.Quote, 0, len(a.adapters))
collect:
	for range a.adapters {
		select {
		case q := <-results:
			quotes = append(quotes, q)
			metrics.RecordSourceQuote(q.Source, symbol, q.Success, time.Duration(q.LatencyMS)*time.Millisecond)
		case <-ctx.Done():
			break collect
		}
	}

	prices := make([]decimal.Decimal, 0, len(quotes))
	for _, q := range quotes {
		if q.Usable() {
			prices = append(prices, q.Price)
		}
	}

	if len(prices) == 0 {
		metrics.RecordAggregationFailure(symbol)
		a.logger.Warn("All sources failed", "symbol", symbol, "attempted", len(a.adapters))
		return nil, fmt.Errorf("%w: %s", ErrNoDataAvailable, symbol)
	}

	mean := meanOf(prices)
	variancePct := variancePercent(prices, mean)
	conf := confidence(len(prices), len(a.adapters), variancePct)

	if variancePct > a.alertPct {
		metrics.RecordHighVariance(symbol)
		a.logger.Warn("High variance across sources",
			"symbol", symbol,
			"variance_pct", variancePct,
			"threshold_pct", a.alertPct,
			"sources", len(prices))
	}

	return &AggregatedPrice{
		Symbol:          symbol,
		Price:           medianOf(prices),
		Mean:            mean,
		VariancePercent: variancePct,
		Sources:         quotes,
		ComputedAt:      time.Now().UTC(),
		Confidence:      conf,
	}, nil
}

// AdapterCount returns the number of configured adapters.
func (a *Aggregator) AdapterCount() int {
	return len(a.adapters)
}
