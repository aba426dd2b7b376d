// Package api provides the HTTP and WebSocket API for the oracle service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle"
	"oracle-pricefeed/pkg/oracle/aggregator"
	"oracle-pricefeed/pkg/oracle/attestor"
	"oracle-pricefeed/pkg/oracle/health"
)

const defaultHistoryLimit = 100

// Server is the HTTP API server.
type Server struct {
	addr    string
	svc     *oracle.Service
	monitor *health.Monitor
	att     *attestor.Attestor
	watched []string
	hub     *Hub // nil when WebSocket streaming is disabled
	logger  *logging.Logger
	server  *http.Server
}

// NewServer creates the API server. hub may be nil to disable /ws.
func NewServer(addr string, svc *oracle.Service, monitor *health.Monitor, att *attestor.Attestor, watched []string, hub *Hub, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Server{
		addr:    addr,
		svc:     svc,
		monitor: monitor,
		att:     att,
		watched: watched,
		hub:     hub,
		logger:  logger,
	}
}

// envelope is the response wrapper for all /v1 endpoints.
type envelope struct {
	RequestID        string            `json:"request_id"`
	Result           interface{}       `json:"result,omitempty"`
	Errors           map[string]string `json:"errors,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
	Status           string            `json:"status"`
}

// Handler returns the HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/prices", s.handlePrices)
	mux.HandleFunc("/v1/history", s.handleHistory)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/verify", s.handleVerify)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.handleWebSocket)
	}
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrice handles /v1/price?symbol=BTC.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	httpStatus := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/price", strconv.Itoa(httpStatus), time.Since(start))
	}()

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		httpStatus = http.StatusBadRequest
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"symbol": "query parameter required"})
		return
	}

	price, cached, err := s.svc.Price(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, aggregator.ErrNoDataAvailable) {
			// A clear no-data response, never a zero price presented as real.
			httpStatus = http.StatusServiceUnavailable
			s.sendEnvelope(w, httpStatus, start, "no_data", nil, map[string]string{symbol: err.Error()})
			return
		}
		httpStatus = http.StatusInternalServerError
		s.logger.Error("Price request failed", "symbol", symbol, "error", err.Error())
		s.sendEnvelope(w, httpStatus, start, "error", nil, map[string]string{symbol: "internal error"})
		return
	}

	status := "ok"
	if cached {
		status = "cached"
	}
	s.sendEnvelope(w, httpStatus, start, status, price, nil)
}

// handlePrices handles /v1/prices?symbols=BTC,ETH. Defaults to the watched
// symbol set. Symbols with no data are reported in the errors map, not as
// zero prices.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	httpStatus := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/prices", strconv.Itoa(httpStatus), time.Since(start))
	}()

	symbols := s.watched
	if raw := strings.TrimSpace(r.URL.Query().Get("symbols")); raw != "" {
		symbols = nil
		for _, sym := range strings.Split(raw, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, sym)
			}
		}
	}
	if len(symbols) == 0 {
		httpStatus = http.StatusBadRequest
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"symbols": "no symbols requested"})
		return
	}

	results := make(map[string]*aggregator.AggregatedPrice, len(symbols))
	failures := make(map[string]string)
	for _, symbol := range symbols {
		price, _, err := s.svc.Price(r.Context(), symbol)
		if err != nil {
			failures[symbol] = err.Error()
			continue
		}
		results[symbol] = price
	}

	if len(results) == 0 {
		httpStatus = http.StatusServiceUnavailable
		s.sendEnvelope(w, httpStatus, start, "no_data", nil, failures)
		return
	}
	s.sendEnvelope(w, httpStatus, start, "ok", results, failures)
}

// handleHistory handles /v1/history?symbol=BTC&limit=100.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	httpStatus := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/history", strconv.Itoa(httpStatus), time.Since(start))
	}()

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		httpStatus = http.StatusBadRequest
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"symbol": "query parameter required"})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpStatus = http.StatusBadRequest
			s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"limit": "must be a positive integer"})
			return
		}
		limit = parsed
	}

	points := s.svc.Store().History(symbol, limit)
	s.sendEnvelope(w, httpStatus, start, "ok", points, nil)
}

// handleStatus handles /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/status", "200", time.Since(start))
	}()

	status := s.monitor.Status(s.watched)
	s.sendEnvelope(w, http.StatusOK, start, "ok", status, nil)
}

// verifyRequest is the /v1/verify request body.
type verifyRequest struct {
	Symbol    string             `json:"symbol"`
	Price     string             `json:"price"`
	Timestamp time.Time          `json:"timestamp"`
	Signature attestor.Signature `json:"signature"`
}

// handleVerify handles POST /v1/verify: recomputes the attestation over the
// supplied fields and reports whether the signature matches. A mismatch is
// a negative result, not an error.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	httpStatus := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/verify", strconv.Itoa(httpStatus), time.Since(start))
	}()

	if r.Method != http.MethodPost {
		httpStatus = http.StatusMethodNotAllowed
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"method": "POST required"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpStatus = http.StatusBadRequest
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"body": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		httpStatus = http.StatusBadRequest
		s.sendEnvelope(w, httpStatus, start, "bad_request", nil, map[string]string{"price": "not a decimal"})
		return
	}

	valid := s.att.Verify(req.Symbol, price, req.Timestamp, req.Signature)
	s.sendEnvelope(w, httpStatus, start, "ok", map[string]bool{"valid": valid}, nil)
}

// sendEnvelope writes the standard response wrapper.
func (s *Server) sendEnvelope(w http.ResponseWriter, httpStatus int, start time.Time, status string, result interface{}, errs map[string]string) {
	resp := envelope{
		RequestID:        uuid.NewString(),
		Result:           result,
		Errors:           errs,
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Status:           status,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
