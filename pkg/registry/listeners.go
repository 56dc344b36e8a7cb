package registry

import (
	"sync"

	"github.com/aretw0/keel/pkg/core"
)

type listenerEntry struct {
	key      string
	selector core.Selector
	callback func(prev, cur any)
	equal    func(a, b any) bool
}

// ListenerOption configures a state listener.
type ListenerOption func(*listenerEntry)

// WithCompare replaces the default identity comparison used to decide whether
// the selected value changed.
func WithCompare(equal func(a, b any) bool) ListenerOption {
	return func(e *listenerEntry) {
		e.equal = equal
	}
}

// Listeners collects side effects keyed to changes of a selected value.
type Listeners struct {
	gate
	entries []*listenerEntry
}

// NewListeners creates an empty, open listener registry.
func NewListeners() *Listeners {
	return &Listeners{gate: newGate("listener")}
}

// Register adds a listener. callback receives the previous and the current
// selected value whenever they differ.
func (l *Listeners) Register(key string, selector core.Selector, callback func(prev, cur any), opts ...ListenerOption) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.admit(key); err != nil {
		return err
	}
	entry := &listenerEntry{
		key:      key,
		selector: selector,
		callback: callback,
		equal:    core.Same,
	}
	for _, opt := range opts {
		opt(entry)
	}
	l.entries = append(l.entries, entry)
	return nil
}

// MustRegister is like Register but panics on error.
func (l *Listeners) MustRegister(key string, selector core.Selector, callback func(prev, cur any), opts ...ListenerOption) {
	if err := l.Register(key, selector, callback, opts...); err != nil {
		panic(err)
	}
}

// Subscribe attaches every listener through a single store subscription.
// The last observed values are seeded from the state at subscribe time, so
// nothing fires until a dispatch actually changes a selection.
func (l *Listeners) Subscribe(store *core.Store) func() {
	l.mu.RLock()
	entries := make([]*listenerEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	var mu sync.Mutex
	last := make([]any, len(entries))
	seed := store.GetState()
	for i, e := range entries {
		last[i] = e.selector(seed)
	}

	return store.Subscribe(func(change core.Change) {
		mu.Lock()
		defer mu.Unlock()

		for i, e := range entries {
			cur := e.selector(change.Next)
			if e.equal(last[i], cur) {
				continue
			}
			prev := last[i]
			last[i] = cur
			e.callback(prev, cur)
		}
	})
}
