package registry

import (
	"github.com/aretw0/keel/pkg/core"
)

type reducerEntry struct {
	initial any
	reduce  core.Reducer
}

// Reducers collects named subtree reducers.
type Reducers struct {
	gate
	entries map[string]reducerEntry
}

// NewReducers creates an empty, open reducer registry.
func NewReducers() *Reducers {
	return &Reducers{
		gate:    newGate("reducer"),
		entries: make(map[string]reducerEntry),
	}
}

// Register adds reducer under key. initial is the subtree used when the state
// holds nothing for key yet.
func (r *Reducers) Register(key string, initial any, reducer core.Reducer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.admit(key); err != nil {
		return err
	}
	r.entries[key] = reducerEntry{initial: initial, reduce: reducer}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Reducers) MustRegister(key string, initial any, reducer core.Reducer) {
	if err := r.Register(key, initial, reducer); err != nil {
		panic(err)
	}
}

// Combine returns the root reducer. Every registered key is reduced on every
// action and the result holds exactly the registered keys. When no subtree
// changed and no key was missing or stray, the previous root is returned as is.
func (r *Reducers) Combine() core.RootReducer {
	r.mu.RLock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	entries := make(map[string]reducerEntry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	r.mu.RUnlock()

	return func(state core.State, action core.Action) core.State {
		next := make(core.State, len(keys))
		changed := len(state) != len(keys)

		for _, key := range keys {
			entry := entries[key]
			prev, ok := state[key]
			if !ok {
				prev = entry.initial
				changed = true
			}
			sub := entry.reduce(prev, action)
			if !core.Same(prev, sub) {
				changed = true
			}
			next[key] = sub
		}

		if !changed {
			return state
		}
		return next
	}
}

// InitialState merges restored subtrees over the registered initial values.
// Map subtrees are merged shallowly; anything else replaces the default.
// Restored keys with no reducer are dropped.
func (r *Reducers) InitialState(restored core.State) core.State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(core.State, len(r.order))
	for _, key := range r.order {
		initial := r.entries[key].initial
		value, ok := restored[key]
		if !ok {
			out[key] = initial
			continue
		}
		out[key] = mergeSubtree(initial, value)
	}
	return out
}

func mergeSubtree(initial, restored any) any {
	base, ok := initial.(map[string]any)
	if !ok {
		return restored
	}
	over, ok := restored.(map[string]any)
	if !ok {
		return restored
	}
	merged := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}
