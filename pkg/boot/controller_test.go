package boot_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/adapters/host"
	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/compose"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
	"github.com/aretw0/keel/pkg/registry"
)

const (
	timeoutShort = 2 * time.Second
	tick         = 5 * time.Millisecond
)

// countingComposer records how often Compose is attempted.
type countingComposer struct {
	*compose.Composer
	calls atomic.Int32
}

func (c *countingComposer) Compose(ctx context.Context, backend core.Storage, extra ...core.Middleware) (*core.Store, error) {
	c.calls.Add(1)
	return c.Composer.Compose(ctx, backend, extra...)
}

type lifecycleLog struct {
	mu      sync.Mutex
	actions []string
}

func (l *lifecycleLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.actions))
	copy(out, l.actions)
	return out
}

func newController(t *testing.T, backend core.Storage, opts ...boot.Option) (*boot.Controller, *countingComposer, *lifecycleLog) {
	t.Helper()
	log := &lifecycleLog{}
	set := registry.NewSet()
	set.Reducers.MustRegister("lifecycle", "", func(state any, action core.Action) any {
		switch action.Type {
		case boot.ActionWillMount, boot.ActionWillUnmount:
			log.mu.Lock()
			log.actions = append(log.actions, action.Type)
			log.mu.Unlock()
			return action.Type
		}
		return state
	})
	set.Reducers.MustRegister("viewport", boot.Dimensions{}, func(state any, action core.Action) any {
		if action.Type == boot.ActionClientResized {
			return action.Payload.(boot.Dimensions)
		}
		return state
	})

	composer := &countingComposer{Composer: compose.New(set)}
	return boot.New(composer, backend, opts...), composer, log
}

func TestController_MountAndTeardown(t *testing.T) {
	ctx := context.Background()
	c, _, log := newController(t, storage.NewMemory())
	assert.Equal(t, boot.Uninitialized, c.Phase())

	require.NoError(t, c.Init(ctx))
	assert.Equal(t, boot.Mounted, c.Phase())
	assert.NotNil(t, c.Store())
	assert.Equal(t, []string{boot.ActionWillMount}, log.seen())

	require.NoError(t, c.Teardown(ctx))
	assert.Equal(t, boot.Unmounted, c.Phase())
	assert.Nil(t, c.Store())
	assert.Equal(t, []string{boot.ActionWillMount, boot.ActionWillUnmount}, log.seen())

	// Unmounted is terminal.
	require.NoError(t, c.Init(ctx))
	require.NoError(t, c.Teardown(ctx))
	assert.Equal(t, boot.Unmounted, c.Phase())
	assert.Len(t, log.seen(), 2)
}

func TestController_TeardownBeforeMountIsNoop(t *testing.T) {
	c, _, log := newController(t, storage.NewMemory())
	require.NoError(t, c.Teardown(context.Background()))
	assert.Equal(t, boot.Uninitialized, c.Phase())
	assert.Empty(t, log.seen())
}

func TestController_ReadinessTimeoutThenManualRetry(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory(storage.WithPending())
	c, composer, _ := newController(t, backend, boot.WithReadyTimeout(30*time.Millisecond))

	err := c.Init(ctx)
	require.Error(t, err)
	var ierr *core.InitializationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "storage", ierr.Stage)
	assert.True(t, errors.Is(err, core.ErrNotReady))
	assert.Equal(t, boot.Uninitialized, c.Phase())
	assert.Equal(t, err, c.Err())

	// Nothing retries on its own.
	backend.MarkReady()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, boot.Uninitialized, c.Phase())
	assert.Zero(t, composer.calls.Load())

	require.NoError(t, c.Init(ctx))
	assert.Equal(t, boot.Mounted, c.Phase())
	assert.NoError(t, c.Err())
	assert.Equal(t, int32(1), composer.calls.Load())
}

func TestController_ConcurrentInitComposesOnce(t *testing.T) {
	c, composer, log := newController(t, storage.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Init(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, boot.Mounted, c.Phase())
	assert.Equal(t, int32(1), composer.calls.Load())
	assert.Equal(t, []string{boot.ActionWillMount}, log.seen())
}

func TestController_Resize(t *testing.T) {
	c, _, _ := newController(t, storage.NewMemory())

	assert.ErrorIs(t, c.Resize(80, 24), core.ErrNotMounted)

	require.NoError(t, c.Init(context.Background()))
	require.NoError(t, c.Resize(120, 40))
	assert.Equal(t, boot.Dimensions{Width: 120, Height: 40}, c.Store().GetState()["viewport"])
}

func TestController_WatchPumpsViewportEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _, _ := newController(t, storage.NewMemory())
	require.NoError(t, c.Init(ctx))

	src := host.NewViewportSource(4)
	require.NoError(t, c.Watch(ctx, src))
	require.NoError(t, src.Publish(ctx, 100, 30))

	require.Eventually(t, func() bool {
		return c.Store().GetState()["viewport"] == boot.Dimensions{Width: 100, Height: 30}
	}, timeoutShort, tick)
}

func TestController_WatchReportsPumpPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fatal atomic.Int32
	hook := fault.NewHook(func(err error, isFatal bool) {
		if isFatal {
			fatal.Add(1)
		}
	})

	set := registry.NewSet()
	set.Reducers.MustRegister("viewport", nil, func(state any, action core.Action) any {
		if action.Type == boot.ActionClientResized {
			panic("layout exploded")
		}
		return state
	})
	// Without a store-level reporter the reducer panic escapes Dispatch and
	// reaches the pump's own recovery.
	c := boot.New(compose.New(set), storage.NewMemory(), boot.WithFaultHook(hook))
	require.NoError(t, c.Init(ctx))

	src := host.NewViewportSource(1)
	require.NoError(t, c.Watch(ctx, src))
	require.NoError(t, src.Publish(ctx, 1, 1))

	require.Eventually(t, func() bool { return fatal.Load() == 1 }, timeoutShort, tick)
}

func TestController_Introspection(t *testing.T) {
	c, _, _ := newController(t, storage.NewMemory())
	require.NoError(t, c.Init(context.Background()))

	state := c.State().(boot.ControllerState)
	assert.Equal(t, "mounted", state.Phase)
	assert.NotEmpty(t, state.RunID)
	assert.NotNil(t, state.MountedAt)
	assert.Equal(t, "controller", c.ComponentType())
}

// onAction builds a middleware that calls fn when it sees actionType, after
// the action reached the reducer.
func onAction(actionType string, fn func()) core.Middleware {
	return func(core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(a core.Action) error {
				err := next(a)
				if a.Type == actionType {
					fn()
				}
				return err
			}
		}
	}
}

func TestController_InitFromMountDispatchIsIgnored(t *testing.T) {
	var c *boot.Controller
	var nested error
	called := false
	c, composer, log := newController(t, storage.NewMemory(), boot.WithMiddleware(onAction(boot.ActionWillMount, func() {
		called = true
		nested = c.Init(context.Background())
	})))

	done := make(chan error, 1)
	go func() { done <- c.Init(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(timeoutShort):
		t.Fatal("init did not return")
	}
	assert.True(t, called)
	assert.NoError(t, nested)
	assert.Equal(t, boot.Mounted, c.Phase())
	assert.Equal(t, int32(1), composer.calls.Load())
	assert.Equal(t, []string{boot.ActionWillMount}, log.seen())
}

func TestController_TeardownFromUnmountDispatchIsIgnored(t *testing.T) {
	var c *boot.Controller
	c, _, log := newController(t, storage.NewMemory(), boot.WithMiddleware(onAction(boot.ActionWillUnmount, func() {
		_ = c.Teardown(context.Background())
	})))
	require.NoError(t, c.Init(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.Teardown(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(timeoutShort):
		t.Fatal("teardown did not return")
	}
	assert.Equal(t, boot.Unmounted, c.Phase())
	assert.Equal(t, []string{boot.ActionWillMount, boot.ActionWillUnmount}, log.seen())
}

func TestController_TeardownWhileInitializingIsNoop(t *testing.T) {
	backend := storage.NewMemory(storage.WithPending())
	c, _, log := newController(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.Init(context.Background()) }()
	require.Eventually(t, func() bool { return c.Phase() == boot.Initializing }, timeoutShort, tick)

	start := time.Now()
	require.NoError(t, c.Teardown(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, boot.Initializing, c.Phase())

	backend.MarkReady()
	require.NoError(t, <-done)
	assert.Equal(t, boot.Mounted, c.Phase())
	assert.Equal(t, []string{boot.ActionWillMount}, log.seen())
}

func TestController_InitWhileInitializingDoesNotRetry(t *testing.T) {
	backend := storage.NewMemory(storage.WithPending())
	c, composer, _ := newController(t, backend, boot.WithReadyTimeout(200*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- c.Init(context.Background()) }()
	require.Eventually(t, func() bool { return c.Phase() == boot.Initializing }, timeoutShort, tick)
	runID := c.State().(boot.ControllerState).RunID

	start := time.Now()
	require.NoError(t, c.Init(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	var ierr *core.InitializationError
	require.ErrorAs(t, <-done, &ierr)

	// The ignored call did not start a second attempt once the first failed.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, boot.Uninitialized, c.Phase())
	assert.Zero(t, composer.calls.Load())
	assert.Equal(t, runID, c.State().(boot.ControllerState).RunID)
}
