package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/features/session"
	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/compose"
	"github.com/aretw0/keel/pkg/registry"
)

func mount(t *testing.T, backend *storage.Memory) *boot.Controller {
	t.Helper()
	set := registry.NewSet()
	require.NoError(t, set.Load(session.Module()))
	c := boot.New(compose.New(set), backend)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestSession_CountsMountsAcrossRestarts(t *testing.T) {
	backend := storage.NewMemory()

	first := mount(t, backend)
	assert.Equal(t, session.Session{Mounted: true, Mounts: 1}, session.Get(first.Store().GetState()))
	require.NoError(t, first.Teardown(context.Background()))
	assert.JSONEq(t, `{"mounts":1}`, backend.Snapshot()[session.Key])

	second := mount(t, backend)
	assert.Equal(t, session.Session{Mounted: true, Mounts: 2}, session.Get(second.Store().GetState()))
	assert.JSONEq(t, `{"mounts":2}`, backend.Snapshot()[session.Key])
}

func TestReduce_UnmountWhenNotMounted(t *testing.T) {
	s := session.Session{Mounts: 3}
	assert.Equal(t, s, session.Reduce(s, boot.WillUnmount()))
}
