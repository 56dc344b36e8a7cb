package registry

import (
	"sort"

	"github.com/aretw0/keel/pkg/core"
)

type middlewareEntry struct {
	key   string
	order int
	seq   int
	mw    core.Middleware
}

// MiddlewareOption configures a middleware registration.
type MiddlewareOption func(*middlewareEntry)

// WithOrder sets an ordering hint. Lower values run further out (observe
// actions earlier). Ties keep registration order. Default 0.
func WithOrder(order int) MiddlewareOption {
	return func(e *middlewareEntry) {
		e.order = order
	}
}

// Middleware collects dispatch-pipeline interceptors.
type Middleware struct {
	gate
	entries []middlewareEntry
}

// NewMiddleware creates an empty, open middleware registry.
func NewMiddleware() *Middleware {
	return &Middleware{gate: newGate("middleware")}
}

// Register appends mw under key.
func (m *Middleware) Register(key string, mw core.Middleware, opts ...MiddlewareOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(key); err != nil {
		return err
	}
	entry := middlewareEntry{key: key, seq: len(m.entries), mw: mw}
	for _, opt := range opts {
		opt(&entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

// MustRegister is like Register but panics on error.
func (m *Middleware) MustRegister(key string, mw core.Middleware, opts ...MiddlewareOption) {
	if err := m.Register(key, mw, opts...); err != nil {
		panic(err)
	}
}

// Ordered returns the registered keys in pipeline order, outermost first.
func (m *Middleware) Ordered() []string {
	entries := m.sorted()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

func (m *Middleware) sorted() []middlewareEntry {
	m.mu.RLock()
	entries := make([]middlewareEntry, len(m.entries))
	copy(entries, m.entries)
	m.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

// Apply returns an enhancer building the dispatch pipeline. Registered
// middleware wrap everything else, first-registered outermost; extra (for
// example the thunk middleware) sits inside them, next to the reducer.
func (m *Middleware) Apply(extra ...core.Middleware) core.Enhancer {
	entries := m.sorted()
	chain := make([]core.Middleware, 0, len(entries)+len(extra))
	for _, e := range entries {
		chain = append(chain, e.mw)
	}
	chain = append(chain, extra...)

	return func(api core.MiddlewareAPI, base core.DispatchFunc) core.DispatchFunc {
		dispatch := base
		for i := len(chain) - 1; i >= 0; i-- {
			dispatch = chain[i](api)(dispatch)
		}
		return dispatch
	}
}
