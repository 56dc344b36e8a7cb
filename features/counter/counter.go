// Package counter is a minimal persisted feature: an integer that survives
// restarts.
package counter

import (
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

// Key is the state subtree owned by this feature.
const Key = "counter"

const (
	ActionIncrement = "counter/INCREMENT"
	ActionDecrement = "counter/DECREMENT"
	ActionReset     = "counter/RESET"
)

func Increment() core.Action { return core.Action{Type: ActionIncrement} }
func Decrement() core.Action { return core.Action{Type: ActionDecrement} }
func Reset() core.Action     { return core.Action{Type: ActionReset} }

// Reduce is the counter reducer.
func Reduce(state any, action core.Action) any {
	n, _ := state.(int)
	switch action.Type {
	case ActionIncrement:
		return n + 1
	case ActionDecrement:
		return n - 1
	case ActionReset:
		if n == 0 {
			return state
		}
		return 0
	}
	return state
}

// Value reads the counter from a state tree.
func Value(state core.State) int {
	n, _ := state[Key].(int)
	return n
}

// Option configures the module.
type Option func(*module)

// WithOnChange registers a listener called with the old and new value.
func WithOnChange(fn func(prev, cur int)) Option {
	return func(m *module) {
		m.onChange = fn
	}
}

type module struct {
	onChange func(prev, cur int)
}

// Module returns the registrant.
func Module(opts ...Option) registry.Module {
	m := &module{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *module) Name() string { return Key }

func (m *module) Register(set *registry.Set) error {
	if err := set.Reducers.Register(Key, 0, Reduce); err != nil {
		return err
	}
	if err := set.Persistence.Register(Key, registry.WithCodec(codec.JSON[int]())); err != nil {
		return err
	}
	if m.onChange == nil {
		return nil
	}
	return set.Listeners.Register(Key, func(s core.State) any { return Value(s) }, func(prev, cur any) {
		m.onChange(prev.(int), cur.(int))
	})
}
