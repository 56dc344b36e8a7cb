package registry

import (
	"fmt"

	"github.com/aretw0/introspection"
)

// Module is a feature module. Register is called once at load time and must
// only add entries to the set.
type Module interface {
	Name() string
	Register(set *Set) error
}

// ModuleFunc adapts a plain function to Module.
type ModuleFunc struct {
	ID string
	Fn func(set *Set) error
}

func (m ModuleFunc) Name() string            { return m.ID }
func (m ModuleFunc) Register(set *Set) error { return m.Fn(set) }

// Set bundles the four registries a store is composed from.
type Set struct {
	Reducers    *Reducers
	Middleware  *Middleware
	Persistence *Persistence
	Listeners   *Listeners

	modules []string
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithPersistenceOptions forwards options to the persistence registry.
func WithPersistenceOptions(opts ...PersistenceOption) SetOption {
	return func(s *Set) {
		s.Persistence = NewPersistence(opts...)
	}
}

// NewSet creates four empty, open registries.
func NewSet(opts ...SetOption) *Set {
	s := &Set{
		Reducers:    NewReducers(),
		Middleware:  NewMiddleware(),
		Persistence: NewPersistence(),
		Listeners:   NewListeners(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load registers modules in order and stops at the first failure.
func (s *Set) Load(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(s); err != nil {
			return fmt.Errorf("module %s: %w", m.Name(), err)
		}
		s.modules = append(s.modules, m.Name())
	}
	return nil
}

// Freeze closes all four registries. Idempotent.
func (s *Set) Freeze() {
	s.Reducers.Freeze()
	s.Middleware.Freeze()
	s.Persistence.Freeze()
	s.Listeners.Freeze()
}

// Frozen reports whether every registry is closed.
func (s *Set) Frozen() bool {
	return s.Reducers.Frozen() && s.Middleware.Frozen() &&
		s.Persistence.Frozen() && s.Listeners.Frozen()
}

// SetState exposes the registered keys for observability.
type SetState struct {
	Modules     []string `json:"modules"`
	Reducers    []string `json:"reducers"`
	Middleware  []string `json:"middleware"`
	Persistence []string `json:"persistence"`
	Listeners   []string `json:"listeners"`
	Frozen      bool     `json:"frozen"`
}

// State implements introspection.Introspectable.
func (s *Set) State() any {
	modules := make([]string, len(s.modules))
	copy(modules, s.modules)
	return SetState{
		Modules:     modules,
		Reducers:    s.Reducers.Keys(),
		Middleware:  s.Middleware.Ordered(),
		Persistence: s.Persistence.Keys(),
		Listeners:   s.Listeners.Keys(),
		Frozen:      s.Frozen(),
	}
}

// ComponentType implements introspection.Component.
func (s *Set) ComponentType() string {
	return "registry"
}

var _ introspection.Introspectable = (*Set)(nil)
var _ introspection.Component = (*Set)(nil)
