package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/compose"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/debug"
	"github.com/aretw0/keel/pkg/fault"
	"github.com/aretw0/keel/pkg/middleware"
	kplatform "github.com/aretw0/keel/pkg/platform"
	"github.com/aretw0/keel/pkg/registry"
)

// Keys of the middleware registered by New. Feature modules cannot reuse them.
const (
	MiddlewareCorrelation = "keel/correlation"
	MiddlewareTracing     = "keel/tracing"
	MiddlewareMetrics     = "keel/metrics"
	MiddlewareLogger      = "keel/logger"
	MiddlewareDevtools    = "keel/devtools"
)

// App is a fully wired, not yet initialized application.
type App struct {
	Config     Config
	Logger     *slog.Logger
	Set        *registry.Set
	Backend    core.Storage
	Composer   *compose.Composer
	Controller *boot.Controller
	Policy     *fault.Policy
	Metrics    *middleware.Metrics
	Registry   *prometheus.Registry
	Devtools   *debug.Devtools

	closer io.Closer
}

// New wires an application: it opens the storage backend, registers the
// built-in middleware and the feature modules, installs the containment
// policy and returns an Uninitialized controller.
//
//	app, err := platform.New(ctx, platform.WithConfig(cfg), platform.WithModules(counter.Module()))
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.config
	if o.dev != nil {
		cfg.Dev = *o.dev
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: logger}

	backend := o.backend
	if backend == nil {
		var err error
		backend, app.closer, err = OpenBackend(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	}
	app.Backend = backend

	app.Set = registry.NewSet(registry.WithPersistenceOptions(
		registry.WithExclude(cfg.Persistence.Exclude...),
		registry.WithWriteTimeout(cfg.Persistence.WriteTimeout),
		registry.WithPersistenceLogger(logger),
	))
	if err := app.registerMiddleware(o); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	if err := app.Set.Load(o.modules...); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	hook := o.hook
	if hook == nil {
		hook = fault.Global
	}
	id := kplatform.Current()
	if cfg.Platform != "" {
		id = kplatform.ID(cfg.Platform)
	}
	app.Policy = fault.NewPolicy(
		fault.WithHook(hook),
		fault.WithDev(cfg.Dev),
		fault.WithPlatform(id),
		fault.WithLogger(logger),
	)
	app.Policy.Install()

	app.Composer = compose.New(app.Set,
		compose.WithLogger(logger),
		compose.WithFaultReporter(hook.Reporter()),
	)

	extra := append([]core.Middleware{middleware.Thunk()}, o.middleware...)
	app.Controller = boot.New(app.Composer, backend,
		boot.WithLogger(logger),
		boot.WithReadyTimeout(cfg.Storage.ReadyTimeout),
		boot.WithMiddleware(extra...),
		boot.WithFaultHook(hook),
	)

	logger.Debug("application wired",
		"driver", cfg.Storage.Driver,
		"platform", id,
		"dev", cfg.Dev,
		"modules", len(o.modules))
	return app, nil
}

// registerMiddleware adds the observability middleware ahead of any module,
// outermost first.
func (a *App) registerMiddleware(o *options) error {
	mw := a.Set.Middleware
	if err := mw.Register(MiddlewareCorrelation, middleware.CorrelationID(), registry.WithOrder(-50)); err != nil {
		return err
	}

	if a.Config.Tracing.Enabled {
		var otelOpts []middleware.OTelOption
		if o.tracer != nil {
			otelOpts = append(otelOpts, middleware.WithTracerProvider(o.tracer))
		}
		if err := mw.Register(MiddlewareTracing, middleware.OpenTelemetry(otelOpts...), registry.WithOrder(-40)); err != nil {
			return err
		}
	}

	if a.Config.Metrics.Namespace != "" {
		a.Registry = o.registry
		if a.Registry == nil {
			a.Registry = prometheus.NewRegistry()
		}
		a.Metrics = middleware.NewMetrics(
			middleware.WithNamespace(a.Config.Metrics.Namespace),
			middleware.WithRegistry(a.Registry),
		)
		if err := mw.Register(MiddlewareMetrics, a.Metrics.Middleware(), registry.WithOrder(-30)); err != nil {
			return err
		}
	}

	if err := mw.Register(MiddlewareLogger, middleware.Logger(a.Logger), registry.WithOrder(-20)); err != nil {
		return err
	}

	if a.Config.Dev || a.Config.Debug.Addr != "" {
		a.Devtools = debug.NewDevtools(a.Logger)
		if err := mw.Register(MiddlewareDevtools, a.Devtools.Middleware(), registry.WithOrder(-10)); err != nil {
			return err
		}
	}
	return nil
}

// Components lists what the debug server introspects.
func (a *App) Components() []debug.Component {
	components := []debug.Component{a.Set, a.Controller, a.Policy}
	if c, ok := a.Backend.(debug.Component); ok {
		components = append(components, c)
	}
	return components
}

// DebugServer builds the debug HTTP handler over the controller.
func (a *App) DebugServer() *debug.Server {
	opts := []debug.Option{
		debug.WithComponents(a.Components()...),
		debug.WithLogger(a.Logger),
	}
	if a.Registry != nil {
		opts = append(opts, debug.WithGatherer(a.Registry))
	}
	if a.Devtools != nil {
		opts = append(opts, debug.WithDevtools(a.Devtools))
	}
	return debug.NewServer(a.Controller, opts...)
}

// Close tears the application down if it is mounted, then releases the
// devtools clients and the storage backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Controller != nil && a.Controller.Phase() == boot.Mounted {
		errs = append(errs, a.Controller.Teardown(ctx))
	}
	if a.Devtools != nil {
		a.Devtools.Close()
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
		a.closer = nil
	}
	return errors.Join(errs...)
}

// OpenBackend opens the storage backend selected by cfg.Driver. The returned
// closer is nil for backends holding no resources.
func OpenBackend(ctx context.Context, cfg StorageConfig, logger *slog.Logger) (core.Storage, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "fs":
		return storage.NewFS(cfg.Path, storage.WithFSLogger(logger)), nil, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := storage.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "s3":
		client := storage.NewS3Client(storage.S3Config{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		return storage.NewS3(client, cfg.Bucket, cfg.Prefix), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
