package keel

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/keel/internal/platform"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
	"github.com/aretw0/keel/pkg/registry"
)

// Version exposes the version of the library.
const Version = "0.3.0"

// --- Types ---

// App is a wired application. Its Controller owns the store lifecycle.
type App = platform.App

// Config is the file and environment configuration.
type Config = platform.Config

// Module registers reducers, middleware, persisted keys and listeners.
type Module = registry.Module

// Set bundles the four registries a Module registers into.
type Set = registry.Set

// --- Configuration ---

// Option defines a functional option for configuring an application.
type Option = platform.Option

// LoadConfig reads keel.yaml and KEEL_ environment overrides.
// An empty path looks for keel.yaml in the project root.
func LoadConfig(path string) (Config, error) {
	return platform.Load(path)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return platform.DefaultConfig()
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return platform.WithConfig(cfg)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithBackend allows injecting a custom storage backend.
func WithBackend(backend core.Storage) Option {
	return platform.WithBackend(backend)
}

// WithModules registers feature modules in order.
func WithModules(modules ...Module) Option {
	return platform.WithModules(modules...)
}

// WithMiddleware adds middleware next to the reducer.
func WithMiddleware(mw ...core.Middleware) Option {
	return platform.WithMiddleware(mw...)
}

// WithFaultHook sets the hook the containment policy wraps.
func WithFaultHook(hook *fault.Hook) Option {
	return platform.WithFaultHook(hook)
}

// WithMetricsRegistry sets where dispatch collectors are registered.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return platform.WithMetricsRegistry(reg)
}

// WithTracerProvider sets the provider used when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return platform.WithTracerProvider(tp)
}

// WithDev marks a development build.
func WithDev(dev bool) Option {
	return platform.WithDev(dev)
}

// --- Factory ---

// New wires an application without initializing it.
func New(ctx context.Context, opts ...Option) (*App, error) {
	return platform.New(ctx, opts...)
}

// Start wires an application and runs Init once.
//
// Only wiring errors are returned. A failed Init is logged by the controller
// and the App comes back Uninitialized with Controller.Err set; calling
// Controller.Init again is the way to retry.
func Start(ctx context.Context, opts ...Option) (*App, error) {
	app, err := platform.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	_ = app.Controller.Init(ctx)
	return app, nil
}

// NewModule adapts a function into a Module.
func NewModule(name string, register func(set *Set) error) Module {
	return registry.ModuleFunc{ID: name, Fn: register}
}

// FindProjectRoot recursively looks upwards for keel.yaml, .keel or .git.
func FindProjectRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
