package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	upstreamCalls *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	calculations  *prometheus.CounterVec
	lastRate      *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_cache_hits_total",
				Help: "Cache hits by data kind and cache level",
			},
			[]string{"kind", "level"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_cache_misses_total",
				Help: "Cache misses by data kind",
			},
			[]string{"kind"},
		),
		upstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_upstream_calls_total",
				Help: "Live upstream fetches by provider and result",
			},
			[]string{"provider", "result"},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_fallbacks_total",
				Help: "Calculations served a fallback value, by input",
			},
			[]string{"input"},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "borrowdesk_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
		calculations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_calculations_total",
				Help: "Completed locate fee calculations by result",
			},
			[]string{"result"},
		),
		lastRate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "borrowdesk_last_borrow_rate",
				Help: "Last effective borrow rate computed per ticker",
			},
			[]string{"ticker"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "borrowdesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "borrowdesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCacheHit records a cache hit for a kind at a level (l1, l2).
func (r *Recorder) RecordCacheHit(kind, level string) {
	r.cacheHits.WithLabelValues(kind, level).Inc()
}

// RecordCacheMiss records a total cache miss for a kind.
func (r *Recorder) RecordCacheMiss(kind string) {
	r.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordUpstreamCall records a live fetch attempt outcome.
func (r *Recorder) RecordUpstreamCall(provider, result string) {
	r.upstreamCalls.WithLabelValues(provider, result).Inc()
}

// RecordFallback records that an input was served from fallback.
func (r *Recorder) RecordFallback(input string) {
	r.fallbacks.WithLabelValues(input).Inc()
}

// RecordBreakerState records a breaker state change.
func (r *Recorder) RecordBreakerState(breaker string, state int) {
	r.breakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordCalculation records a completed calculation by result label.
func (r *Recorder) RecordCalculation(result string) {
	r.calculations.WithLabelValues(result).Inc()
}

// RecordLastRate records the last effective rate for a ticker.
func (r *Recorder) RecordLastRate(ticker string, rate float64) {
	r.lastRate.WithLabelValues(ticker).Set(rate)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
