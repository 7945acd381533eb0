package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to the components that record metrics; a nil *Metrics records nothing.
type Metrics struct {
	explorerRequestsTotal   *prometheus.CounterVec
	explorerRequestDuration *prometheus.HistogramVec
	explorerCacheHitsTotal  prometheus.Counter
	rateLimitWaitSeconds    prometheus.Histogram

	rpcCallsTotal *prometheus.CounterVec

	portfolioHoldingsTotal *prometheus.CounterVec
	anomaliesDetectedTotal prometheus.Counter
	chartsRenderedTotal    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		explorerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explorer_requests_total",
				Help: "Total number of block explorer API requests by module, action and status",
			},
			[]string{"module", "action", "status"},
		),
		explorerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "explorer_request_duration_seconds",
				Help:    "Duration of block explorer API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"module", "action"},
		),
		explorerCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "explorer_cache_hits_total",
				Help: "Total number of explorer responses served from the local cache",
			},
		),
		rateLimitWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "explorer_rate_limit_wait_seconds",
				Help:    "Time spent waiting for the explorer rate limiter",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evm_rpc_calls_total",
				Help: "Total number of EVM JSON-RPC batch calls by network and status",
			},
			[]string{"network", "status"},
		),
		portfolioHoldingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_holdings_total",
				Help: "Total number of portfolio holdings computed by network and status",
			},
			[]string{"network", "status"},
		),
		anomaliesDetectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anomalies_detected_total",
				Help: "Total number of transactions flagged as anomalous",
			},
		),
		chartsRenderedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charts_rendered_total",
				Help: "Total number of charts written by kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordExplorerRequest records one explorer call.
func (m *Metrics) RecordExplorerRequest(module, action, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.explorerRequestsTotal.WithLabelValues(module, action, status).Inc()
	m.explorerRequestDuration.WithLabelValues(module, action).Observe(d.Seconds())
}

// RecordCacheHit records an explorer response served from cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.explorerCacheHitsTotal.Inc()
}

// RecordRateLimitWait records time spent blocked on the rate limiter.
func (m *Metrics) RecordRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWaitSeconds.Observe(d.Seconds())
}

// RecordRPCCall records one JSON-RPC batch call.
func (m *Metrics) RecordRPCCall(network, status string) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(network, status).Inc()
}

// RecordHolding records one computed portfolio holding.
func (m *Metrics) RecordHolding(network, status string) {
	if m == nil {
		return
	}
	m.portfolioHoldingsTotal.WithLabelValues(network, status).Inc()
}

// RecordAnomalies adds n flagged transactions.
func (m *Metrics) RecordAnomalies(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.anomaliesDetectedTotal.Add(float64(n))
}

// RecordChart records a rendered chart.
func (m *Metrics) RecordChart(kind string) {
	if m == nil {
		return
	}
	m.chartsRenderedTotal.WithLabelValues(kind).Inc()
}
