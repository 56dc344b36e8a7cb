package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/core"
)

// DefaultWriteTimeout bounds every synchronous write-through.
const DefaultWriteTimeout = 2 * time.Second

type persistenceEntry struct {
	key           string
	selector      core.Selector
	codec         codec.Codec
	shouldPersist func(change core.Change) bool
}

// PersistOption configures a persisted subtree.
type PersistOption func(*persistenceEntry)

// WithSelector extracts the persisted value from the full state.
// Defaults to state[key].
func WithSelector(sel core.Selector) PersistOption {
	return func(e *persistenceEntry) {
		e.selector = sel
	}
}

// WithCodec sets how the subtree is serialized. Defaults to codec.Dynamic(false).
func WithCodec(c codec.Codec) PersistOption {
	return func(e *persistenceEntry) {
		e.codec = c
	}
}

// WithShouldPersist adds a predicate deciding whether a changed subtree is
// written back after a given transition.
func WithShouldPersist(fn func(change core.Change) bool) PersistOption {
	return func(e *persistenceEntry) {
		e.shouldPersist = fn
	}
}

// PersistenceOption configures the persistence registry itself.
type PersistenceOption func(*Persistence)

// WithExclude skips keys matching any of the doublestar patterns: they are
// neither restored nor written.
func WithExclude(patterns ...string) PersistenceOption {
	return func(p *Persistence) {
		p.exclude = append(p.exclude, patterns...)
	}
}

// WithWriteTimeout bounds each storage write. Zero means DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) PersistenceOption {
	return func(p *Persistence) {
		p.writeTimeout = d
	}
}

// WithPersistenceLogger sets the logger for swallowed IO failures.
func WithPersistenceLogger(logger *slog.Logger) PersistenceOption {
	return func(p *Persistence) {
		p.logger = logger
	}
}

// Persistence collects the state subtrees that survive a restart.
type Persistence struct {
	gate
	entries      []*persistenceEntry
	exclude      []string
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPersistence creates an empty, open persistence registry.
func NewPersistence(opts ...PersistenceOption) *Persistence {
	p := &Persistence{gate: newGate("persistence")}
	for _, opt := range opts {
		opt(p)
	}
	if p.writeTimeout <= 0 {
		p.writeTimeout = DefaultWriteTimeout
	}
	return p
}

// Register marks the subtree under key as persisted.
func (p *Persistence) Register(key string, opts ...PersistOption) error {
	if !doublestar.ValidatePattern(key) {
		return errors.New("persistence registry: key is not a valid path: " + key)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.admit(key); err != nil {
		return err
	}
	entry := &persistenceEntry{
		key:   key,
		codec: codec.Dynamic(false),
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.selector == nil {
		entry.selector = func(state core.State) any { return state[key] }
	}
	p.entries = append(p.entries, entry)
	return nil
}

// MustRegister is like Register but panics on error.
func (p *Persistence) MustRegister(key string, opts ...PersistOption) {
	if err := p.Register(key, opts...); err != nil {
		panic(err)
	}
}

// SetLogger replaces the logger used for swallowed IO failures.
func (p *Persistence) SetLogger(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// Excluded reports whether key matches one of the exclusion patterns.
func (p *Persistence) Excluded(key string) bool {
	for _, pattern := range p.exclude {
		if ok, err := doublestar.Match(pattern, key); err == nil && ok {
			return true
		}
	}
	return false
}

// active returns the non-excluded entries.
func (p *Persistence) active() []*persistenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*persistenceEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if !p.Excluded(e.key) {
			out = append(out, e)
		}
	}
	return out
}

func (p *Persistence) log() *slog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// GetPersistedState reads every registered key from storage and returns the
// decoded subtrees. Absent or undecodable entries are omitted; this never fails.
func (p *Persistence) GetPersistedState(ctx context.Context, storage core.Storage) core.State {
	logger := p.log()
	out := make(core.State)

	for _, e := range p.active() {
		raw, ok, err := storage.Get(ctx, e.key)
		if err != nil {
			logger.Warn("persisted state unavailable, using default",
				"error", &core.PersistenceError{Op: "read", Key: e.key, Err: err})
			continue
		}
		if !ok {
			continue
		}
		value, err := e.codec.Decode(raw)
		if err != nil {
			logger.Warn("persisted state corrupted, using default",
				"error", &core.PersistenceError{Op: "decode", Key: e.key, Err: err})
			continue
		}
		out[e.key] = value
	}

	logger.Debug("persisted state restored", "restored", len(out))
	return out
}

// Subscribe writes changed subtrees through to storage after every dispatch.
// Writes happen synchronously inside the notification; failures are logged
// and dropped.
func (p *Persistence) Subscribe(store *core.Store, storage core.Storage) func() {
	entries := p.active()
	logger := p.log()
	timeout := p.writeTimeout

	var mu sync.Mutex
	last := make(map[string]any, len(entries))
	current := store.GetState()
	for _, e := range entries {
		last[e.key] = e.selector(current)
	}

	return store.Subscribe(func(change core.Change) {
		mu.Lock()
		defer mu.Unlock()

		for _, e := range entries {
			value := e.selector(change.Next)
			if core.Same(value, last[e.key]) {
				continue
			}
			if e.shouldPersist != nil && !e.shouldPersist(change) {
				continue
			}
			last[e.key] = value

			data, err := e.codec.Encode(value)
			if err != nil {
				logger.Error("persist failed",
					"error", &core.PersistenceError{Op: "encode", Key: e.key, Err: err})
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err = storage.Set(ctx, e.key, data)
			cancel()
			if err != nil {
				logger.Error("persist failed",
					"error", &core.PersistenceError{Op: "write", Key: e.key, Err: err})
			}
		}
	})
}
