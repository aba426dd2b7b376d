package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/version"
)

const (
	defaultFetchTimeout = 5 * time.Second
	maxResponseBytes    = 1 << 20 // 1 MiB; upstream feeds never legitimately exceed this
)

// BaseAdapter provides the pieces shared by all feed adapters: the
// symbol-to-provider mapping, the HTTP client and quote construction.
type BaseAdapter struct {
	name    string
	stype   SourceType
	symbols map[string]string // canonical symbol -> provider-specific identifier
	client  *http.Client
	logger  *logging.Logger
}

// NewBaseAdapter creates a base adapter with the given symbol mappings.
// symbols maps canonical symbols (e.g. "BTC") to provider identifiers
// (e.g. "BTCUSDT" or "bitcoin").
func NewBaseAdapter(name string, stype SourceType, symbols map[string]string, timeout time.Duration, logger *logging.Logger) *BaseAdapter {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	if symbols == nil {
		symbols = make(map[string]string)
	}
	return &BaseAdapter{
		name:    name,
		stype:   stype,
		symbols: symbols,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name returns the adapter name
func (b *BaseAdapter) Name() string {
	return b.name
}

// Type returns the adapter type
func (b *BaseAdapter) Type() SourceType {
	return b.stype
}

// Logger returns the logger
func (b *BaseAdapter) Logger() *logging.Logger {
	return b.logger
}

// ProviderSymbol maps a canonical symbol to the provider-specific
// identifier, falling back to a lowercase pass-through when no explicit
// mapping exists.
func (b *BaseAdapter) ProviderSymbol(symbol string) string {
	if mapped, ok := b.symbols[symbol]; ok {
		return mapped
	}
	return strings.ToLower(symbol)
}

// Observation constructs a successful quote. Latency is measured from start.
func (b *BaseAdapter) Observation(symbol string, price decimal.Decimal, start time.Time) Quote {
	return Quote{
		Source:     b.name,
		Symbol:     symbol,
		Price:      price,
		ObservedAt: time.Now().UTC(),
		Success:    true,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}

// Failure constructs a failed quote. Latency is recorded regardless of outcome.
func (b *BaseAdapter) Failure(symbol string, start time.Time, err error) Quote {
	b.logger.Debug("Source fetch failed", "source", b.name, "symbol", symbol, "error", err.Error())
	return Quote{
		Source:     b.name,
		Symbol:     symbol,
		ObservedAt: time.Now().UTC(),
		Success:    false,
		Error:      err.Error(),
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}

// GetJSON performs a GET request bounded by ctx and decodes the JSON body
// into out. Non-2xx responses and malformed bodies are returned as errors
// for the caller to fold into a failed Quote.
func (b *BaseAdapter) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// GetLoggerFromConfig extracts the logger from the config map or returns a
// noop logger so adapters never dereference a nil logger.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if raw, ok := config["logger"]; ok {
		if logger, ok := raw.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// ParseSymbolsFromConfig extracts optional symbol mappings from config.
// Expected format: symbols: { "BTC": "BTCUSDT", "ETH": "ETHUSDT" }.
// Returns nil when no mappings are configured so adapters keep their defaults.
func ParseSymbolsFromConfig(config map[string]interface{}) (map[string]string, error) {
	raw, ok := config["symbols"]
	if !ok {
		return nil, nil
	}

	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: symbols must be a map of string to string", ErrInvalidConfig)
	}

	symbols := make(map[string]string, len(rawMap))
	for canonical, providerRaw := range rawMap {
		provider, ok := providerRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: symbol %s maps to %T", ErrInvalidConfig, canonical, providerRaw)
		}
		symbols[canonical] = provider
	}
	return symbols, nil
}

// GetTimeoutFromConfig extracts the per-adapter timeout from config.
func GetTimeoutFromConfig(config map[string]interface{}) time.Duration {
	if raw, ok := config["timeout"].(string); ok {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return defaultFetchTimeout
}
