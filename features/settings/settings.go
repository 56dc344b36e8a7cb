// Package settings holds user preferences persisted as YAML.
package settings

import (
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

// Key is the state subtree owned by this feature.
const Key = "settings"

const (
	ActionSet   = "settings/SET"
	ActionUnset = "settings/UNSET"
)

// MetaTransient marks an action whose result must not be written to storage.
const MetaTransient = "transient"

// Entry is the payload of ActionSet.
type Entry struct {
	Name  string
	Value any
}

// Set changes one preference.
func Set(name string, value any) core.Action {
	return core.Action{Type: ActionSet, Payload: Entry{Name: name, Value: value}}
}

// Preview changes one preference for this run only.
func Preview(name string, value any) core.Action {
	a := Set(name, value)
	a.Meta = map[string]any{MetaTransient: true}
	return a
}

// Unset removes a preference, falling back to the default on next start.
func Unset(name string) core.Action {
	return core.Action{Type: ActionUnset, Payload: name}
}

// Defaults returns the preferences used before anything is stored.
func Defaults() map[string]any {
	return map[string]any{
		"theme":  "light",
		"locale": "en",
	}
}

// Reduce applies Set and Unset. The previous map is never mutated.
func Reduce(state any, action core.Action) any {
	prefs, _ := state.(map[string]any)
	switch action.Type {
	case ActionSet:
		entry, ok := action.Payload.(Entry)
		if !ok || entry.Name == "" {
			return state
		}
		if cur, exists := prefs[entry.Name]; exists && core.Same(cur, entry.Value) {
			return state
		}
		next := clone(prefs)
		next[entry.Name] = entry.Value
		return next
	case ActionUnset:
		name, _ := action.Payload.(string)
		if _, exists := prefs[name]; !exists {
			return state
		}
		next := clone(prefs)
		delete(next, name)
		return next
	}
	return state
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Get reads one preference from a state tree.
func Get(state core.State, name string) (any, bool) {
	prefs, _ := state[Key].(map[string]any)
	v, ok := prefs[name]
	return v, ok
}

func persistable(change core.Change) bool {
	transient, _ := change.Action.Meta[MetaTransient].(bool)
	return !transient
}

// Module registers the preferences reducer and its YAML persistence.
func Module() registry.Module {
	return registry.ModuleFunc{ID: Key, Fn: func(set *registry.Set) error {
		if err := set.Reducers.Register(Key, Defaults(), Reduce); err != nil {
			return err
		}
		return set.Persistence.Register(Key,
			registry.WithCodec(codec.YAML[map[string]any]()),
			registry.WithShouldPersist(persistable),
		)
	}}
}
