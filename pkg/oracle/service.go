// Package oracle ties the aggregation pipeline together: cache lookup,
// fan-out aggregation, attestation and storage.
package oracle

import (
	"context"
	"sync"
	"time"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/oracle/aggregator"
	"oracle-pricefeed/pkg/oracle/attestor"
	"oracle-pricefeed/pkg/oracle/store"
)

// Listener receives every newly stored AggregatedPrice. Must not block.
type Listener func(*aggregator.AggregatedPrice)

// Service is the request path of the oracle core: callers ask for a price,
// the service serves it from cache when fresh and otherwise runs a full
// aggregate-sign-store cycle.
type Service struct {
	agg      *aggregator.Aggregator
	att      *attestor.Attestor
	store    *store.Store
	cacheTTL time.Duration
	logger   *logging.Logger

	mu       sync.RWMutex
	listener Listener
}

// NewService creates the oracle service.
func NewService(agg *aggregator.Aggregator, att *attestor.Attestor, st *store.Store, cacheTTL time.Duration, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Service{
		agg:      agg,
		att:      att,
		store:    st,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// SetListener registers the update listener. Set once at startup.
func (s *Service) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Price returns the current price for the symbol, serving a fresh cached
// entry when available and aggregating otherwise. The second return value
// reports whether the result came from cache.
func (s *Service) Price(ctx context.Context, symbol string) (*aggregator.AggregatedPrice, bool, error) {
	if price, ok := s.store.GetFresh(symbol, s.cacheTTL); ok {
		return price, true, nil
	}

	price, err := s.refresh(ctx, symbol)
	if err != nil {
		return nil, false, err
	}
	return price, false, nil
}

// Refresh forces a full aggregation cycle for each symbol, ignoring cache
// freshness. Used by the background scheduler to keep the cache warm.
// Failures are logged per symbol; a symbol with no data retains its prior
// cached value unchanged.
func (s *Service) Refresh(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		if _, err := s.refresh(ctx, symbol); err != nil {
			s.logger.Warn("Background refresh failed", "symbol", symbol, "error", err.Error())
		}
	}
}

// Store exposes the underlying store for read-side consumers.
func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) refresh(ctx context.Context, symbol string) (*aggregator.AggregatedPrice, error) {
	price, err := s.agg.Aggregate(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price.Signature = s.att.Sign(price.Symbol, price.Price, price.ComputedAt)

	if !s.store.Put(ctx, price) {
		// A concurrent cycle already stored a newer result; serve that one.
		if cached, ok := s.store.Latest(symbol); ok {
			return cached, nil
		}
		return price, nil
	}

	s.notify(price)

	s.logger.Debug("Stored aggregated price",
		"symbol", price.Symbol,
		"price", price.Price.String(),
		"confidence", price.Confidence,
		"sources", price.SuccessfulSources())

	return price, nil
}

func (s *Service) notify(price *aggregator.AggregatedPrice) {
	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()
	if listener != nil {
		listener(price)
	}
}
