package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Predictive search Prometheus metrics.
var (
	PredictiveRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketsearch",
			Name:      "predictive_requests_total",
			Help:      "Total predictive search requests by outcome",
		},
		[]string{"channel", "outcome"}, // ok / rate_limited / invalid_input / timeout
	)

	PredictiveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketsearch",
			Name:      "predictive_duration_seconds",
			Help:      "Predictive search latency in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"channel"},
	)

	SourceQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketsearch",
			Name:      "source_query_duration_seconds",
			Help:      "Source query duration in seconds, secondary lookups included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	SourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketsearch",
			Name:      "source_errors_total",
			Help:      "Source query failures absorbed as empty results",
		},
		[]string{"source", "error_type"}, // store / timeout / unexpected
	)

	DroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketsearch",
			Name:      "dropped_total",
			Help:      "Rows or IDs silently dropped during search",
		},
		[]string{"reason"}, // invalid_uuid / invalid_handle / creator_missing / malformed_row
	)

	RateLimitErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketsearch",
			Name:      "ratelimit_errors_total",
			Help:      "Rate limiter backend errors (request admitted)",
		},
		[]string{"channel"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "marketsearch",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)

// Source labels.
const (
	SourceListings = "listings"
	SourceCreators = "creators"
)

// Source error types.
const (
	ErrorTypeStore      = "store"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeUnexpected = "unexpected"
)

// Drop reasons.
const (
	DropInvalidUUID    = "invalid_uuid"
	DropInvalidHandle  = "invalid_handle"
	DropCreatorMissing = "creator_missing"
	DropMalformedRow   = "malformed_row"
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(PredictiveRequestsTotal)
	prometheus.MustRegister(PredictiveDuration)
	prometheus.MustRegister(SourceQueryDuration)
	prometheus.MustRegister(SourceErrorsTotal)
	prometheus.MustRegister(DroppedTotal)
	prometheus.MustRegister(RateLimitErrorsTotal)
	prometheus.MustRegister(BreakerState)
	searchMetricsRegistered = true
}

// Dropped increments the drop counter for reason by n.
func Dropped(reason string, n int) {
	if n <= 0 {
		return
	}
	DroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// BreakerRecorder publishes circuit breaker transitions to BreakerState.
type BreakerRecorder struct{}

// SetBreakerState sets the gauge for name.
func (BreakerRecorder) SetBreakerState(name string, state gobreaker.State) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}
