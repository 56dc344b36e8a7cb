package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/adapters/storage"
)

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := storage.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Ready(ctx))

	_, ok, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "counter", "1"))
	require.NoError(t, s.Set(ctx, "counter", "2"))
	require.NoError(t, s.Set(ctx, "settings", "{}"))
	require.NoError(t, s.Close())

	// A fresh handle sees what the first one wrote.
	reopened, err := storage.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "counter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	keys, err := reopened.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter", "settings"}, keys)
}
