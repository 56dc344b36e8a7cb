package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/keel/pkg/core"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "keel").
	Namespace string

	// Subsystem is the metrics subsystem (default: "store").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "keel",
		Subsystem: "store",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the dispatch collectors.
type Metrics struct {
	ActionsTotal     *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	InFlight         prometheus.Gauge
}

// NewMetrics registers the dispatch collectors. Registering twice against the
// same registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Total number of dispatched actions",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent in the dispatch pipeline in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_in_flight",
			Help:        "Number of actions currently inside the pipeline",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Middleware returns the middleware feeding m.
func (m *Metrics) Middleware() core.Middleware {
	return func(api core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(action core.Action) error {
				m.InFlight.Inc()
				start := time.Now()
				err := next(action)
				m.InFlight.Dec()

				m.DispatchDuration.WithLabelValues(action.Type).Observe(time.Since(start).Seconds())
				status := "success"
				if err != nil {
					status = "error"
				}
				m.ActionsTotal.WithLabelValues(action.Type, status).Inc()
				return err
			}
		}
	}
}

// Prometheus creates middleware that collects dispatch metrics:
//   - keel_store_actions_total: Counter of actions by type and status
//   - keel_store_dispatch_duration_seconds: Histogram of pipeline duration
//   - keel_store_dispatch_in_flight: Gauge of actions inside the pipeline
func Prometheus(opts ...MetricsOption) core.Middleware {
	return NewMetrics(opts...).Middleware()
}
