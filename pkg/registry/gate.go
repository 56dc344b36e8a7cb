package registry

import (
	"sync"

	"github.com/aretw0/keel/pkg/core"
)

// gate implements the open/frozen protocol and key uniqueness shared by all registries.
type gate struct {
	name   string
	mu     sync.RWMutex
	frozen bool
	keys   map[string]struct{}
	order  []string
}

func newGate(name string) gate {
	return gate{name: name, keys: make(map[string]struct{})}
}

// admit reserves key. Caller must hold g.mu for writing.
func (g *gate) admit(key string) error {
	if g.frozen {
		return core.ErrRegistryFrozen
	}
	if _, exists := g.keys[key]; exists {
		return &core.DuplicateKeyError{Registry: g.name, Key: key}
	}
	g.keys[key] = struct{}{}
	g.order = append(g.order, key)
	return nil
}

// Freeze closes the registry for registration. Idempotent.
func (g *gate) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen = true
}

// Frozen reports whether Freeze has been called.
func (g *gate) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Keys returns registered keys in registration order.
func (g *gate) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of registered entries.
func (g *gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}
