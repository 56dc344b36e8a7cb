package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

func settingsReducer(state any, action core.Action) any {
	if action.Type != "settings/set" {
		return state
	}
	prev, _ := state.(map[string]any)
	next := make(map[string]any, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	kv := action.Payload.(map[string]any)
	for k, v := range kv {
		next[k] = v
	}
	return next
}

type failingStorage struct {
	*storage.Memory
	sets int
}

func (f *failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (f *failingStorage) Set(context.Context, string, string) error {
	f.sets++
	return errors.New("disk on fire")
}

func newSettingsStore(t *testing.T, p *registry.Persistence, backend core.Storage) *core.Store {
	t.Helper()
	r := registry.NewReducers()
	r.MustRegister("settings", map[string]any{"theme": "dark"}, settingsReducer)
	r.MustRegister("counter", 0, counter)

	restored := p.GetPersistedState(context.Background(), backend)
	store := core.NewStore(r.Combine(), r.InitialState(restored), nil)
	p.Subscribe(store, backend)
	return store
}

func TestPersistence_RoundTripAcrossProcesses(t *testing.T) {
	dir := t.TempDir()

	// First process: change settings, which writes through.
	{
		p := registry.NewPersistence()
		p.MustRegister("settings")
		store := newSettingsStore(t, p, storage.NewFS(dir))
		require.NoError(t, store.Dispatch(core.Action{
			Type:    "settings/set",
			Payload: map[string]any{"theme": "light", "fontSize": 14.0},
		}))
	}

	// Second process: a fresh registry restores what was written.
	p := registry.NewPersistence()
	p.MustRegister("settings")
	restored := p.GetPersistedState(context.Background(), storage.NewFS(dir))

	assert.Equal(t, map[string]any{"theme": "light", "fontSize": 14.0}, restored["settings"])
	assert.NotContains(t, restored, "counter")
}

func TestPersistence_WritesOnlyChangedSubtrees(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	p := registry.NewPersistence()
	p.MustRegister("settings")
	p.MustRegister("counter", registry.WithCodec(codec.JSON[int]()))
	store := newSettingsStore(t, p, backend)

	require.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
	snap := backend.Snapshot()
	assert.Equal(t, "1", snap["counter"])
	assert.NotContains(t, snap, "settings")

	restored := p.GetPersistedState(ctx, backend)
	assert.Equal(t, 1, restored["counter"])
}

func TestPersistence_ShouldPersistPredicate(t *testing.T) {
	backend := storage.NewMemory()
	p := registry.NewPersistence()
	p.MustRegister("counter", registry.WithShouldPersist(func(c core.Change) bool {
		return c.Next["counter"].(int)%2 == 0
	}))
	store := newSettingsStore(t, p, backend)

	require.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
	assert.NotContains(t, backend.Snapshot(), "counter")

	require.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
	assert.Equal(t, "2", backend.Snapshot()["counter"])
}

func TestPersistence_CustomSelector(t *testing.T) {
	backend := storage.NewMemory()
	p := registry.NewPersistence()
	p.MustRegister("theme", registry.WithSelector(func(s core.State) any {
		return s["settings"].(map[string]any)["theme"]
	}))
	store := newSettingsStore(t, p, backend)

	require.NoError(t, store.Dispatch(core.Action{
		Type:    "settings/set",
		Payload: map[string]any{"theme": "solarized"},
	}))
	assert.Equal(t, `"solarized"`, backend.Snapshot()["theme"])
}

func TestPersistence_CorruptAndFailingStorageAreContained(t *testing.T) {
	ctx := context.Background()
	p := registry.NewPersistence()
	p.MustRegister("settings")
	p.MustRegister("counter")

	backend := storage.NewMemory(storage.WithData(map[string]string{
		"settings": "{not json",
		"counter":  "3",
	}))
	restored := p.GetPersistedState(ctx, backend)
	assert.NotContains(t, restored, "settings")
	assert.Equal(t, 3.0, restored["counter"])

	failing := &failingStorage{Memory: storage.NewMemory()}
	assert.Empty(t, p.GetPersistedState(ctx, failing))

	store := newSettingsStore(t, p, failing)
	require.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
	assert.Equal(t, 1, failing.sets)
	assert.Equal(t, 1, store.GetState()["counter"])
}

func TestPersistence_ExcludePatterns(t *testing.T) {
	backend := storage.NewMemory(storage.WithData(map[string]string{"counter": "7"}))
	p := registry.NewPersistence(registry.WithExclude("count*"))
	p.MustRegister("counter")
	p.MustRegister("settings")
	assert.True(t, p.Excluded("counter"))
	assert.False(t, p.Excluded("settings"))

	assert.Empty(t, p.GetPersistedState(context.Background(), backend))

	store := newSettingsStore(t, p, backend)
	require.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
	assert.Equal(t, "7", backend.Snapshot()["counter"])
}

func TestPersistence_DuplicateKey(t *testing.T) {
	p := registry.NewPersistence()
	require.NoError(t, p.Register("settings"))
	assert.ErrorIs(t, p.Register("settings"), core.ErrDuplicateKey)
	assert.Equal(t, []string{"settings"}, p.Keys())
}
