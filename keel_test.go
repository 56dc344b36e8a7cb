package keel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/features/counter"
	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
)

func TestStart_InitFailureKeepsAppForRetry(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(storage.WithPending())

	cfg := keel.DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Storage.ReadyTimeout = 20 * time.Millisecond

	app, err := keel.Start(ctx,
		keel.WithConfig(cfg),
		keel.WithLogger(quietLogger()),
		keel.WithBackend(backend),
		keel.WithFaultHook(fault.NewHook(nil)),
		keel.WithModules(counter.Module()),
	)
	require.NoError(t, err)
	require.NotNil(t, app)
	defer app.Close(ctx)

	assert.Equal(t, boot.Uninitialized, app.Controller.Phase())
	var ierr *core.InitializationError
	require.ErrorAs(t, app.Controller.Err(), &ierr)
	assert.ErrorIs(t, app.Controller.Err(), core.ErrNotReady)
	assert.ErrorIs(t, app.Controller.Dispatch(counter.Increment()), core.ErrNotMounted)

	backend.MarkReady()
	require.NoError(t, app.Controller.Init(ctx))
	assert.Equal(t, boot.Mounted, app.Controller.Phase())
	require.NoError(t, app.Controller.Dispatch(counter.Increment()))
	assert.Equal(t, 1, counter.Value(app.Controller.Store().GetState()))
}
