package obs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"signal-simulation-service/internal/domain"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's Prometheus metrics. It implements
// ports.SignalObserver so signal processing can report into it without
// knowing about Prometheus.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	SignalsReceived prometheus.Counter
	SignalFailures  *prometheus.CounterVec
	ArrivalSpread   prometheus.Histogram
	Dispatches      *prometheus.CounterVec
	Towers          prometheus.Gauge
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil. Re-registering returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	received, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signals_received_total",
		Help: "Signal events accepted for processing.",
	}), "signals_received_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_failures_total",
		Help: "Signal events that failed before dispatch, labeled by reason.",
	}, []string{"reason"}), "signal_failures_total")
	if err != nil {
		return nil, err
	}

	spread, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "signal_arrival_spread_ms",
		Help:    "Difference between the latest and earliest tower arrival per signal, in milliseconds.",
		Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2000, 4000},
	}), "signal_arrival_spread_ms")
	if err != nil {
		return nil, err
	}

	dispatches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_dispatch_total",
		Help: "Bundle deliveries to the locator, labeled by outcome (ok, error, dropped).",
	}, []string{"outcome"}), "locator_dispatch_total")
	if err != nil {
		return nil, err
	}

	towers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "towers_initialized",
		Help: "Number of towers in the persisted layout after initialization.",
	}), "towers_initialized")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		HTTPRequests:    httpRequests,
		HTTPDurations:   httpDurations,
		SignalsReceived: received,
		SignalFailures:  failures,
		ArrivalSpread:   spread,
		Dispatches:      dispatches,
		Towers:          towers,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished HTTP request.
func (c *Collector) ObserveHTTP(method, route string, code int, dur time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (c *Collector) SetTowerCount(n int) {
	if c == nil {
		return
	}
	c.Towers.Set(float64(n))
}

func (c *Collector) SignalReceived(context.Context, domain.SignalEvent) {
	if c == nil {
		return
	}
	c.SignalsReceived.Inc()
}

func (c *Collector) ArrivalsComputed(_ context.Context, _ domain.SignalEvent, _ int, spreadMs int64) {
	if c == nil {
		return
	}
	c.ArrivalSpread.Observe(float64(spreadMs))
}

func (c *Collector) SignalFailed(_ context.Context, _ domain.SignalEvent, err error) {
	if c == nil {
		return
	}
	c.SignalFailures.WithLabelValues(failureReason(err)).Inc()
}

func (c *Collector) BundleDispatched(_ context.Context, _ domain.SignalBundle, err error) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(DispatchOutcome(err)).Inc()
}

// DispatchOutcome classifies a dispatch result for the outcome label.
func DispatchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrDispatchDropped):
		return "dropped"
	default:
		return "error"
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoTowers):
		return "no_towers"
	case errors.Is(err, domain.ErrStoreUnreachable):
		return "store_unreachable"
	case errors.Is(err, domain.ErrInvalidSpeed):
		return "invalid_speed"
	case errors.Is(err, domain.ErrArrivalOutOfRange):
		return "out_of_range"
	default:
		return "other"
	}
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
