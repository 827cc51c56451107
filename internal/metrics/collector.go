// Package metrics exposes the process's Prometheus instrumentation (C16):
// counters/gauges/histograms updated by the scheduler, scraped by the
// operator HTTP surface's /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns every metric the process registers. A single instance is
// constructed at startup and passed to the scheduler. ObserveProviderCall
// has no caller, so ProviderLatency and ProviderErrorsTotal are registered
// but never updated.
type Collector struct {
	ScansTotal          *prometheus.CounterVec
	ScanDuration        *prometheus.HistogramVec
	SignalsGenerated    *prometheus.CounterVec
	SignalsClosed       *prometheus.CounterVec
	IngestRowsTotal     *prometheus.CounterVec
	ProviderErrorsTotal *prometheus.CounterVec
	ProviderLatency     *prometheus.HistogramVec
	CircuitState        *prometheus.GaugeVec
	OpenSignalsGauge    prometheus.Gauge
	MacroCacheStale     *prometheus.GaugeVec
}

// NewCollector registers every metric against the default Prometheus
// registry via promauto, mirroring the teacher's single-collector-object
// idiom but backed by real counters instead of simulated fixtures.
func NewCollector() *Collector {
	return &Collector{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_scans_total",
			Help: "Total number of symbol scan cycles run, by symbol and outcome.",
		}, []string{"symbol", "outcome"}),
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketintel_scan_duration_seconds",
			Help:    "Wall-clock duration of one symbol scan cycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"symbol"}),
		SignalsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_signals_generated_total",
			Help: "Signals emitted by the signal engine, by symbol and direction.",
		}, []string{"symbol", "direction"}),
		SignalsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_signals_closed_total",
			Help: "Signals closed by the outcome tracker, by symbol and status.",
		}, []string{"symbol", "status"}),
		IngestRowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_ingest_rows_total",
			Help: "Candle rows fetched per scan from the routed adapter, by symbol and timeframe.",
		}, []string{"symbol", "timeframe"}),
		ProviderErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_provider_errors_total",
			Help: "Adapter fetch errors, by provider and error kind.",
		}, []string{"provider", "kind"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketintel_provider_latency_seconds",
			Help:    "Provider fetch latency, by provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketintel_circuit_state",
			Help: "Per-provider circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),
		OpenSignalsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "marketintel_open_signals",
			Help: "Current count of signals in pending/active status across all symbols.",
		}),
		MacroCacheStale: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketintel_macro_cache_stale",
			Help: "Whether the macro cache entry for a source is stale (1) or fresh (0).",
		}, []string{"source"}),
	}
}

// ObserveScan records the outcome and duration of one scan cycle.
func (c *Collector) ObserveScan(symbol, outcome string, d time.Duration) {
	c.ScansTotal.WithLabelValues(symbol, outcome).Inc()
	c.ScanDuration.WithLabelValues(symbol).Observe(d.Seconds())
}

// ObserveProviderCall records a single adapter fetch's latency and, on
// failure, its error kind.
func (c *Collector) ObserveProviderCall(provider string, d time.Duration, errKind string) {
	c.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
	if errKind != "" {
		c.ProviderErrorsTotal.WithLabelValues(provider, errKind).Inc()
	}
}

// CircuitStateValue maps a gobreaker.State-like label to the numeric gauge
// value exposed on /metrics.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
