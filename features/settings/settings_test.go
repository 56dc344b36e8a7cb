package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/features/settings"
	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/compose"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

func newStore(t *testing.T, backend *storage.Memory) *core.Store {
	t.Helper()
	set := registry.NewSet()
	require.NoError(t, set.Load(settings.Module()))
	store, err := compose.New(set).Compose(context.Background(), backend)
	require.NoError(t, err)
	return store
}

func TestReduce_NoChangeKeepsIdentity(t *testing.T) {
	prefs := settings.Defaults()
	assert.True(t, core.Same(prefs, settings.Reduce(prefs, settings.Set("theme", "light"))))
	assert.True(t, core.Same(prefs, settings.Reduce(prefs, settings.Unset("missing"))))
	assert.True(t, core.Same(prefs, settings.Reduce(prefs, core.Action{Type: settings.ActionSet, Payload: 42})))

	next := settings.Reduce(prefs, settings.Set("theme", "dark")).(map[string]any)
	assert.Equal(t, "dark", next["theme"])
	assert.Equal(t, "light", prefs["theme"])
}

func TestModule_RestoresMergedOverDefaults(t *testing.T) {
	backend := storage.NewMemory(storage.WithData(map[string]string{
		settings.Key: "theme: dark\n",
	}))
	store := newStore(t, backend)

	theme, _ := settings.Get(store.GetState(), "theme")
	locale, _ := settings.Get(store.GetState(), "locale")
	assert.Equal(t, "dark", theme)
	assert.Equal(t, "en", locale)
}

func TestModule_TransientChangesAreNotWritten(t *testing.T) {
	backend := storage.NewMemory()
	store := newStore(t, backend)

	require.NoError(t, store.Dispatch(settings.Preview("theme", "dark")))
	_, written := backend.Snapshot()[settings.Key]
	assert.False(t, written)

	require.NoError(t, store.Dispatch(settings.Set("locale", "pt")))
	assert.Contains(t, backend.Snapshot()[settings.Key], "locale: pt")
	assert.Contains(t, backend.Snapshot()[settings.Key], "theme: dark")
}
