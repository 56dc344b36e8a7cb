// Package boot drives the application from storage readiness to a mounted
// store and back down again.
package boot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/aretw0/keel/pkg/adapters/host"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
)

// DefaultReadyTimeout bounds the wait for storage readiness.
const DefaultReadyTimeout = 10 * time.Second

// Composer builds the store once storage is ready.
type Composer interface {
	Compose(ctx context.Context, backend core.Storage, extra ...core.Middleware) (*core.Store, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithReadyTimeout bounds how long Init waits for the storage backend.
// Non-positive values keep DefaultReadyTimeout.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.readyTimeout = d
		}
	}
}

// WithMiddleware passes extra middleware to the composer.
func WithMiddleware(mw ...core.Middleware) Option {
	return func(c *Controller) {
		c.extra = append(c.extra, mw...)
	}
}

// WithFaultHook sets where panics of the event pump are reported.
// Defaults to fault.Global.
func WithFaultHook(hook *fault.Hook) Option {
	return func(c *Controller) {
		c.hook = hook
	}
}

// Controller is the lifecycle state machine. Its transitions are the only
// way to obtain or release the store.
type Controller struct {
	composer     Composer
	backend      core.Storage
	extra        []core.Middleware
	readyTimeout time.Duration
	logger       *slog.Logger
	hook         *fault.Hook

	mu        sync.RWMutex
	phase     Phase
	leaving   bool
	store     *core.Store
	err       error
	runID     string
	mountedAt time.Time
}

// New creates an uninitialized controller.
func New(composer Composer, backend core.Storage, opts ...Option) *Controller {
	c := &Controller{
		composer:     composer,
		backend:      backend,
		readyTimeout: DefaultReadyTimeout,
		hook:         fault.Global,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Phase returns the current lifecycle state.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Err returns the error of the last failed Init, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Store returns the mounted store, or nil.
func (c *Controller) Store() *core.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Init waits for storage, composes the store and mounts the application.
// It does nothing unless the controller is Uninitialized. On failure the
// error is logged and returned, and the controller goes back to
// Uninitialized; there is no automatic retry.
//
// Calls made while another Init is running, including calls from inside the
// mount dispatch, return nil at once.
func (c *Controller) Init(ctx context.Context) error {
	runID := uuid.NewString()
	c.mu.Lock()
	if c.phase != Uninitialized {
		phase := c.phase
		c.mu.Unlock()
		c.logger.Debug("init ignored", "phase", phase)
		return nil
	}
	c.phase = Initializing
	c.runID = runID
	c.mu.Unlock()

	logger := c.logger.With("run_id", runID)
	logger.Info("initializing")

	readyCtx, cancel := context.WithTimeout(ctx, c.readyTimeout)
	err := c.backend.Ready(readyCtx)
	cancel()
	if err != nil {
		return c.fail(logger, "storage", err)
	}

	store, err := c.composer.Compose(ctx, c.backend, c.extra...)
	if err != nil {
		return c.fail(logger, "compose", err)
	}

	c.mu.Lock()
	c.store = store
	c.phase = Mounted
	c.err = nil
	c.mountedAt = time.Now()
	c.mu.Unlock()

	if err := store.Dispatch(WillMount()); err != nil {
		logger.Error("mount action failed", "error", err)
	}
	logger.Info("mounted")
	return nil
}

func (c *Controller) fail(logger *slog.Logger, stage string, err error) error {
	ierr := &core.InitializationError{Stage: stage, Err: err}
	logger.Error("initialization failed", "stage", stage, "error", err)

	c.mu.Lock()
	c.phase = Uninitialized
	c.err = ierr
	c.mu.Unlock()
	return ierr
}

// Teardown dispatches the unmount action and releases the store. It is a
// no-op unless the application is Mounted and no other Teardown is running.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	store := c.store
	if c.phase != Mounted || store == nil || c.leaving {
		phase := c.phase
		c.mu.Unlock()
		c.logger.Debug("teardown ignored", "phase", phase)
		return nil
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.leaving = true
	c.mu.Unlock()

	if err := store.Dispatch(WillUnmount()); err != nil {
		c.logger.Error("unmount action failed", "error", err)
	}

	c.mu.Lock()
	c.phase = Unmounted
	c.store = nil
	c.leaving = false
	c.mu.Unlock()

	c.logger.Info("unmounted")
	return nil
}

// Dispatch sends action to the mounted store.
func (c *Controller) Dispatch(action core.Action) error {
	store := c.Store()
	if store == nil {
		return core.ErrNotMounted
	}
	return store.Dispatch(action)
}

// Resize dispatches ClientResized. It is dropped with core.ErrNotMounted
// when nothing is mounted.
func (c *Controller) Resize(width, height int) error {
	err := c.Dispatch(ClientResized(width, height))
	if errors.Is(err, core.ErrNotMounted) {
		c.logger.Debug("resize dropped", "width", width, "height", height)
	}
	return err
}

// Watch starts source and pumps its events into the store until ctx ends.
func (c *Controller) Watch(ctx context.Context, source lifecycle.Source) error {
	if err := source.Start(ctx); err != nil {
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer c.hook.Recover("boot.watch")
		events := source.Events()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				c.handleEvent(ev)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		c.logger.Error("event pump failed", "error", err)
	}))
	return nil
}

func (c *Controller) handleEvent(ev lifecycle.Event) {
	switch e := ev.(type) {
	case host.DimensionsChanged:
		_ = c.Resize(e.Width, e.Height)
	default:
		c.logger.Debug("host event ignored", "event", ev.String())
	}
}
