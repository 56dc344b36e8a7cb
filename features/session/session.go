// Package session tracks the mount lifecycle in the store and counts how many
// times the application has been mounted across restarts.
package session

import (
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

// Key is the state subtree owned by this feature.
const Key = "session"

// Session is the subtree value.
type Session struct {
	Mounted bool `json:"-"`
	Mounts  int  `json:"mounts"`
}

// Reduce follows the lifecycle actions.
func Reduce(state any, action core.Action) any {
	s, _ := state.(Session)
	switch action.Type {
	case boot.ActionWillMount:
		s.Mounted = true
		s.Mounts++
		return s
	case boot.ActionWillUnmount:
		if !s.Mounted {
			return state
		}
		s.Mounted = false
		return s
	}
	return state
}

// Get reads the session from a state tree.
func Get(state core.State) Session {
	s, _ := state[Key].(Session)
	return s
}

// Module registers the reducer and persists the mount count. The mounted flag
// always starts false.
func Module() registry.Module {
	return registry.ModuleFunc{ID: Key, Fn: func(set *registry.Set) error {
		if err := set.Reducers.Register(Key, Session{}, Reduce); err != nil {
			return err
		}
		return set.Persistence.Register(Key,
			registry.WithCodec(codec.JSON[Session]()),
			registry.WithSelector(func(state core.State) any {
				return Session{Mounts: Get(state).Mounts}
			}),
		)
	}}
}
