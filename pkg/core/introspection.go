package core

import (
	"sort"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Keys        []string `json:"keys"`
	Subscribers int      `json:"subscribers"`
	Dispatched  uint64   `json:"dispatched"`
	Queued      int      `json:"queued"`
	Draining    bool     `json:"draining"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return StoreState{
		Keys:        keys,
		Subscribers: len(s.subscribers),
		Dispatched:  s.dispatched,
		Queued:      len(s.queue),
		Draining:    s.draining,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
