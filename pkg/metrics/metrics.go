// Package metrics provides Prometheus metrics for the oracle service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceQuotesTotal counts quote fetch attempts per source and outcome.
	SourceQuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_quotes_total",
			Help: "Total number of quote fetch attempts against external sources",
		},
		[]string{"source", "symbol", "outcome"},
	)

	// SourceQuoteLatency is a histogram of quote fetch latencies per source.
	SourceQuoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_quote_latency_seconds",
			Help:    "Latency of quote fetches against external sources",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	// AggregationDuration is a histogram of aggregation cycle durations.
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AggregationFailuresTotal counts cycles where no source returned data.
	AggregationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_failures_total",
			Help: "Total number of aggregation cycles that produced no price",
		},
		[]string{"symbol"},
	)

	// HighVarianceEventsTotal counts aggregation cycles over the variance alert threshold.
	HighVarianceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "high_variance_events_total",
			Help: "Total number of aggregation cycles exceeding the variance alert threshold",
		},
		[]string{"symbol"},
	)

	// CacheLookupsTotal counts freshness-cache lookups by result.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_cache_lookups_total",
			Help: "Total number of price cache lookups",
		},
		[]string{"result"},
	)

	// ActiveSources is a gauge of successful sources in the last health sweep.
	ActiveSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_active_sources",
			Help: "Successful sources across watched symbols in the last health sweep",
		},
	)

	// TotalSources is a gauge of known sources in the last health sweep.
	TotalSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_total_sources",
			Help: "Known sources across watched symbols in the last health sweep",
		},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// WebSocketClients is a gauge of connected streaming clients.
	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		SourceQuotesTotal,
		SourceQuoteLatency,
		AggregationDuration,
		AggregationFailuresTotal,
		HighVarianceEventsTotal,
		CacheLookupsTotal,
		ActiveSources,
		TotalSources,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		WebSocketClients,
	)
}

// ServeHTTP starts the metrics HTTP server on the given address.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceQuote records the outcome and latency of one quote fetch.
func RecordSourceQuote(source, symbol string, success bool, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	SourceQuotesTotal.WithLabelValues(source, symbol, outcome).Inc()
	SourceQuoteLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordAggregation records the duration of one aggregation cycle.
func RecordAggregation(duration time.Duration) {
	AggregationDuration.Observe(duration.Seconds())
}

// RecordAggregationFailure records a cycle where every source failed.
func RecordAggregationFailure(symbol string) {
	AggregationFailuresTotal.WithLabelValues(symbol).Inc()
}

// RecordHighVariance records a cycle that exceeded the variance alert threshold.
func RecordHighVariance(symbol string) {
	HighVarianceEventsTotal.WithLabelValues(symbol).Inc()
}

// RecordCacheLookup records a freshness-cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetSourceGauges updates the health sweep source gauges.
func SetSourceGauges(active, total int) {
	ActiveSources.Set(float64(active))
	TotalSources.Set(float64(total))
}

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
