package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/features/counter"
	"github.com/aretw0/keel/features/settings"
)

func main() {
	count := flag.Int("count", 1000, "Number of actions to dispatch")
	driver := flag.String("driver", "fs", "Storage driver (memory, fs, sqlite)")
	keep := flag.Bool("keep", false, "Keep the benchmark state directory after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "keel_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	cfg := keel.DefaultConfig()
	cfg.Storage.Driver = *driver
	cfg.Storage.Path = filepath.Join(benchDir, "state")
	if *driver == "sqlite" {
		cfg.Storage.Path = filepath.Join(benchDir, "keel.db")
	}
	cfg.Metrics.Namespace = ""
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.Background()
	start := func() *keel.App {
		app, err := keel.Start(ctx,
			keel.WithConfig(cfg),
			keel.WithLogger(logger),
			keel.WithModules(counter.Module(), settings.Module()),
		)
		if err != nil {
			panic(err)
		}
		if err := app.Controller.Err(); err != nil {
			panic(err)
		}
		return app
	}

	// Run 1: every dispatch changes a persisted subtree, so every dispatch writes.
	fmt.Printf("Dispatching %d actions (%s backend)...\n", *count, *driver)
	app := start()
	startRun := time.Now()
	for i := 0; i < *count; i++ {
		if err := app.Controller.Dispatch(counter.Increment()); err != nil {
			panic(err)
		}
	}
	written := time.Since(startRun)

	// Run 2: nothing changes, so persistence is skipped.
	if err := app.Controller.Dispatch(counter.Reset()); err != nil {
		panic(err)
	}
	startIdle := time.Now()
	for i := 0; i < *count; i++ {
		if err := app.Controller.Dispatch(counter.Reset()); err != nil {
			panic(err)
		}
	}
	idle := time.Since(startIdle)
	if err := app.Close(ctx); err != nil {
		panic(err)
	}

	// Run 3: cold start restores state from the backend.
	startMount := time.Now()
	app = start()
	mount := time.Since(startMount)
	restored := counter.Value(app.Controller.Store().GetState())
	_ = app.Close(ctx)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d actions, %s):\n", *count, *driver)
	fmt.Printf("  Write-through: %v (%v/action)\n", written, written/time.Duration(*count))
	fmt.Printf("  Unchanged:     %v (%v/action)\n", idle, idle/time.Duration(*count))
	fmt.Printf("  Cold mount:    %v (restored counter=%d)\n", mount, restored)
	fmt.Printf("--------------------------------------------------\n")
}
