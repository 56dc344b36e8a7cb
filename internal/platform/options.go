package platform

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
	"github.com/aretw0/keel/pkg/registry"
)

// options holds the internal configuration for a keel application.
type options struct {
	config     Config
	logger     *slog.Logger
	backend    core.Storage
	modules    []registry.Module
	middleware []core.Middleware
	hook       *fault.Hook
	registry   *prometheus.Registry
	tracer     trace.TracerProvider
	dev        *bool
}

// Option defines a functional option for configuring an application.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration, usually the result of Load.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackend allows injecting a storage backend (e.g. mock, custom driver).
// If provided, storage.driver is ignored.
func WithBackend(backend core.Storage) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithModules registers feature modules, in order, before the store is composed.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) {
		o.modules = append(o.modules, modules...)
	}
}

// WithMiddleware adds middleware sitting inside the registered ones, next to
// the thunk middleware.
func WithMiddleware(mw ...core.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithFaultHook sets the hook the containment policy wraps.
// Defaults to fault.Global.
func WithFaultHook(hook *fault.Hook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// WithMetricsRegistry sets where dispatch collectors are registered.
// Defaults to a fresh registry per application.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTracerProvider sets the provider used when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

// WithDev overrides the dev flag of the configuration. In dev builds the
// containment policy is not installed.
func WithDev(dev bool) Option {
	return func(o *options) {
		o.dev = &dev
	}
}
