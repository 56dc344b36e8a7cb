// Package compose assembles the Store from a frozen registry set.
package compose

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger handed to the store and the persistence registry.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// WithFaultReporter forwards fn to the store so panics during dispatch are
// contained.
func WithFaultReporter(fn core.FaultReporter) Option {
	return func(c *Composer) {
		c.faults = fn
	}
}

// Composer builds exactly one Store per lifetime.
type Composer struct {
	set    *registry.Set
	logger *slog.Logger
	faults core.FaultReporter

	mu    sync.Mutex
	store *core.Store
}

// New creates a Composer over set.
func New(set *registry.Set, opts ...Option) *Composer {
	c := &Composer{set: set}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compose freezes the registries, restores persisted state from backend and
// returns the wired store. extra middleware sit inside the registered ones.
// A second call after a successful one fails with core.ErrAlreadyComposed.
func (c *Composer) Compose(ctx context.Context, backend core.Storage, extra ...core.Middleware) (*core.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return nil, core.ErrAlreadyComposed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.set.Freeze()
	c.set.Persistence.SetLogger(c.logger)

	restored := c.set.Persistence.GetPersistedState(ctx, backend)
	reducer := c.set.Reducers.Combine()
	initial := c.set.Reducers.InitialState(restored)
	enhancer := c.set.Middleware.Apply(extra...)

	opts := []core.StoreOption{core.WithStoreLogger(c.logger)}
	if c.faults != nil {
		opts = append(opts, core.WithFaultReporter(c.faults))
	}
	store := core.NewStore(reducer, initial, enhancer, opts...)

	c.set.Persistence.Subscribe(store, backend)
	c.set.Listeners.Subscribe(store)

	c.logger.Info("store composed",
		"reducers", c.set.Reducers.Len(),
		"middleware", c.set.Middleware.Len(),
		"persisted", len(restored),
		"listeners", c.set.Listeners.Len(),
	)

	c.store = store
	return store, nil
}

// Store returns the composed store, or nil before a successful Compose.
func (c *Composer) Store() *core.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}
