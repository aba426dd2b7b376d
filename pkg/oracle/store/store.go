// Package store holds the freshness-bounded price cache and the bounded
// per-symbol history series.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle/aggregator"
)

// HistoricalPoint is a compact projection of an AggregatedPrice retained
// for trend analysis.
type HistoricalPoint struct {
	Symbol          string          `json:"symbol"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       time.Time       `json:"timestamp"`
	SourceCount     int             `json:"source_count"`
	VariancePercent float64         `json:"variance_percent"`
}

// SnapshotStore persists the latest AggregatedPrice per symbol beyond
// process lifetime. Implementations must treat a missing symbol as
// (nil, nil), not an error.
type SnapshotStore interface {
	Save(ctx context.Context, price *aggregator.AggregatedPrice) error
	Load(ctx context.Context, symbol string) (*aggregator.AggregatedPrice, error)
}

// entry holds the cached state for one symbol. Per-symbol locking keeps
// writes for different symbols from blocking each other.
type entry struct {
	mu      sync.RWMutex
	latest  *aggregator.AggregatedPrice
	history []HistoricalPoint
}

// Store is the only shared mutable state in the oracle core. Constructed
// once at process start and injected into its consumers.
type Store struct {
	mu        sync.RWMutex // guards the entries map, not entry contents
	entries   map[string]*entry
	cap       int
	snapshots SnapshotStore
	logger    *logging.Logger
	now       func() time.Time
}

// New creates a store with the given per-symbol history cap. snapshots may
// be nil to disable durable persistence.
func New(historyCap int, snapshots SnapshotStore, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Store{
		entries:   make(map[string]*entry),
		cap:       historyCap,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// GetFresh returns the cached price only if it is younger than maxAge.
// An entry whose age equals maxAge is stale: fresh means age < maxAge.
func (s *Store) GetFresh(symbol string, maxAge time.Duration) (*aggregator.AggregatedPrice, bool) {
	e := s.lookup(symbol)
	if e == nil {
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.latest == nil || s.now().Sub(e.latest.ComputedAt) >= maxAge {
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	metrics.RecordCacheLookup(true)
	return e.latest, true
}

// Latest returns the cached price regardless of age. Used by the health
// monitor, which must never trigger aggregation.
func (s *Store) Latest(symbol string) (*aggregator.AggregatedPrice, bool) {
	e := s.lookup(symbol)
	if e == nil {
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.latest == nil {
		return nil, false
	}
	return e.latest, true
}

// Put replaces the cached entry for the price's symbol and appends a
// historical projection, evicting the oldest point beyond the cap. A put
// whose ComputedAt is not newer than the cached entry's is dropped, so an
// overlapping older cycle can never overwrite a newer result. Returns
// whether the price was accepted.
func (s *Store) Put(ctx context.Context, price *aggregator.AggregatedPrice) bool {
	e := s.ensure(price.Symbol)

	e.mu.Lock()
	if e.latest != nil && !price.ComputedAt.After(e.latest.ComputedAt) {
		e.mu.Unlock()
		s.logger.Debug("Dropping out-of-order price",
			"symbol", price.Symbol,
			"computed_at", price.ComputedAt)
		return false
	}

	e.latest = price
	e.history = append(e.history, project(price))
	if len(e.history) > s.cap {
		e.history = e.history[len(e.history)-s.cap:]
	}
	e.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, price); err != nil {
			s.logger.Warn("Snapshot save failed", "symbol", price.Symbol, "error", err.Error())
		}
	}
	return true
}

// History returns up to limit of the most recent points for the symbol in
// chronological order. Never blocks on aggregation; missing symbols yield
// an empty slice.
func (s *Store) History(symbol string, limit int) []HistoricalPoint {
	e := s.lookup(symbol)
	if e == nil || limit <= 0 {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.history)
	if limit > n {
		limit = n
	}
	out := make([]HistoricalPoint, limit)
	copy(out, e.history[n-limit:])
	return out
}

// Warm loads persisted snapshots for the given symbols into the cache.
// Called once at startup; failures are logged and skipped.
func (s *Store) Warm(ctx context.Context, symbols []string) {
	if s.snapshots == nil {
		return
	}
	for _, symbol := range symbols {
		price, err := s.snapshots.Load(ctx, symbol)
		if err != nil {
			s.logger.Warn("Snapshot load failed", "symbol", symbol, "error", err.Error())
			continue
		}
		if price == nil {
			continue
		}
		e := s.ensure(symbol)
		e.mu.Lock()
		if e.latest == nil {
			e.latest = price
		}
		e.mu.Unlock()
		s.logger.Info("Warmed cache from snapshot", "symbol", symbol, "computed_at", price.ComputedAt)
	}
}

func (s *Store) lookup(symbol string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[symbol]
}

func (s *Store) ensure(symbol string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[symbol]
	if !ok {
		e = &entry{}
		s.entries[symbol] = e
	}
	return e
}

func project(p *aggregator.AggregatedPrice) HistoricalPoint {
	return HistoricalPoint{
		Symbol:          p.Symbol,
		Price:           p.Price,
		Timestamp:       p.ComputedAt,
		SourceCount:     p.SuccessfulSources(),
		VariancePercent: p.VariancePercent,
	}
}
