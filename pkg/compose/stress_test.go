package compose_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/compose"
	"github.com/aretw0/keel/pkg/core"
)

// TestConcurrency_ExternalVsInternal simulates a "noisy neighbor": another
// process keeps writing files into the state directory while several
// goroutines dispatch. Every increment must land and the stored value must
// match the final state.
func TestConcurrency_ExternalVsInternal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	dir := t.TempDir()
	backend := storage.NewFS(dir)
	store, err := compose.New(newSet(t)).Compose(context.Background(), backend)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// External actor
	noiseDone := make(chan struct{})
	go func() {
		defer close(noiseDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				path := filepath.Join(dir, fmt.Sprintf("noise-%d.json", rand.Intn(10)))
				_ = os.WriteFile(path, []byte(strconv.FormatInt(time.Now().UnixNano(), 10)), 0644)
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			}
		}
	}()

	const workers, perWorker = 4, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				assert.NoError(t, store.Dispatch(core.Action{Type: "increment"}))
			}
		}()
	}
	wg.Wait()
	cancel()
	<-noiseDone

	assert.Equal(t, workers*perWorker, store.GetState()["counter"])

	raw, ok, err := backend.Get(context.Background(), "counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(workers*perWorker), raw)

	keys, err := backend.Keys(context.Background())
	require.NoError(t, err)
	assert.Contains(t, keys, "counter")
}
