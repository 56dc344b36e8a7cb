package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

func TestSet_LoadFailsFast(t *testing.T) {
	set := registry.NewSet()
	second := false

	err := set.Load(
		registry.ModuleFunc{ID: "a", Fn: func(s *registry.Set) error {
			return s.Reducers.Register("counter", 0, counter)
		}},
		registry.ModuleFunc{ID: "b", Fn: func(s *registry.Set) error {
			return s.Reducers.Register("counter", 0, counter)
		}},
		registry.ModuleFunc{ID: "c", Fn: func(s *registry.Set) error {
			second = true
			return nil
		}},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateKey))
	assert.Contains(t, err.Error(), "module b")
	assert.False(t, second)

	state := set.State().(registry.SetState)
	assert.Equal(t, []string{"a"}, state.Modules)
	assert.Equal(t, []string{"counter"}, state.Reducers)
}

func TestSet_FreezeClosesEverything(t *testing.T) {
	set := registry.NewSet()
	set.Freeze()
	assert.True(t, set.Frozen())

	assert.ErrorIs(t, set.Reducers.Register("k", 0, counter), core.ErrRegistryFrozen)
	assert.ErrorIs(t, set.Middleware.Register("k", nil), core.ErrRegistryFrozen)
	assert.ErrorIs(t, set.Persistence.Register("k"), core.ErrRegistryFrozen)
	assert.ErrorIs(t, set.Listeners.Register("k", nil, nil), core.ErrRegistryFrozen)
	assert.Equal(t, "registry", set.ComponentType())
}
