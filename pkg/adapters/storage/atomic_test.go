package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceValue(t *testing.T) {
	t.Run("Creates New Value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "counter.json")

		require.NoError(t, replaceValue(path, `{"n":1}`, 0644))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"n":1}`, string(got))
	})

	t.Run("Replaces And Leaves Nothing Staged", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "counter.json")
		require.NoError(t, os.WriteFile(path, []byte("41"), 0644))

		require.NoError(t, replaceValue(path, "42", 0600))
		got, _ := os.ReadFile(path)
		assert.Equal(t, "42", string(got))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			assert.False(t, strings.HasSuffix(e.Name(), stagedSuffix), "staged file left behind: %s", e.Name())
		}
	})

	t.Run("Missing Directory Fails Cleanly", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gone", "counter.json")
		assert.ErrorContains(t, replaceValue(path, "1", 0644), "stage counter.json")
	})

	t.Run("Staged Files Are Not Keys", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".counter.json.123"+stagedSuffix), []byte("7"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.json"), []byte("6"), 0644))

		keys, err := NewFS(dir).Keys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"counter"}, keys)
	})
}
