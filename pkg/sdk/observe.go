package marketsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call statuses recorded by the SDK.
const (
	statusOK    = "ok"
	statusEmpty = "empty"
	statusError = "error"
)

// sdkMetrics holds prometheus collectors for client calls.
type sdkMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	results *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketsearch",
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "SDK calls by operation and status (ok, empty, error).",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketsearch",
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "SDK call round-trip time in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketsearch",
			Subsystem: "sdk",
			Name:      "results_per_call",
			Help:      "Items returned per successful predictive call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector already registered
// under the same descriptor so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("marketsearch: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("marketsearch: metric registered with type %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records each client call to slog and Prometheus. Both sinks are
// optional; a nil observer records nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one call. total is the number of items returned.
func (o *observer) observe(op string, start time.Time, total int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := callStatus(total, err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, status).Inc()
		o.metrics.latency.WithLabelValues(op).Observe(dur.Seconds())
		if err == nil {
			o.metrics.results.WithLabelValues(op).Observe(float64(total))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := []any{"op", op, "status", status, "duration", dur}
	if err != nil {
		o.logger.Warn("marketsearch call failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("marketsearch call completed", append(attrs, "total", total)...)
}

func callStatus(total int, err error) string {
	switch {
	case err != nil:
		return statusError
	case total == 0:
		return statusEmpty
	default:
		return statusOK
	}
}
