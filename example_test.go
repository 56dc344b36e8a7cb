package keel_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/features/counter"
	"github.com/aretw0/keel/pkg/adapters/storage"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/fault"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Example_basic mounts an application over an in-memory backend that already
// holds a persisted counter, increments it and reads the stored value back.
func Example_basic() {
	ctx := context.Background()
	backend := storage.NewMemory(storage.WithData(map[string]string{counter.Key: "41"}))

	cfg := keel.DefaultConfig()
	cfg.Storage.Driver = "memory"

	app, err := keel.Start(ctx,
		keel.WithConfig(cfg),
		keel.WithLogger(quietLogger()),
		keel.WithBackend(backend),
		keel.WithFaultHook(fault.NewHook(nil)),
		keel.WithModules(counter.Module()),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close(ctx)

	if err := app.Controller.Dispatch(counter.Increment()); err != nil {
		log.Fatal(err)
	}

	fmt.Println("phase:", app.Controller.Phase())
	fmt.Println("counter:", counter.Value(app.Controller.Store().GetState()))
	fmt.Println("stored:", backend.Snapshot()[counter.Key])
	// Output:
	// phase: mounted
	// counter: 42
	// stored: 42
}

// ExampleNewModule registers a feature inline.
func ExampleNewModule() {
	ctx := context.Background()
	cfg := keel.DefaultConfig()
	cfg.Storage.Driver = "memory"

	greeting := keel.NewModule("greeting", func(set *keel.Set) error {
		return set.Listeners.Register("greeting", func(s core.State) any { return s["counter"] }, func(prev, cur any) {
			fmt.Printf("counter went from %v to %v\n", prev, cur)
		})
	})

	app, err := keel.Start(ctx,
		keel.WithConfig(cfg),
		keel.WithLogger(quietLogger()),
		keel.WithFaultHook(fault.NewHook(nil)),
		keel.WithModules(counter.Module(), greeting),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close(ctx)

	_ = app.Controller.Dispatch(counter.Increment())
	// Output:
	// counter went from 0 to 1
}
