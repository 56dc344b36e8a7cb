package main

import (
	"context"
	"log/slog"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/features/counter"
	"github.com/aretw0/keel/features/session"
	"github.com/aretw0/keel/features/settings"
	"github.com/aretw0/keel/features/viewport"
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/core"
)

// modules are the features the CLI composes, in registration order.
func modules() []keel.Module {
	logger := slog.Default()
	return []keel.Module{
		session.Module(),
		counter.Module(counter.WithOnChange(func(prev, cur int) {
			logger.Info("counter changed", "from", prev, "to", cur)
		})),
		settings.Module(),
		viewport.Module(func(prev, cur viewport.Breakpoint) {
			logger.Info("layout changed", "from", prev, "to", cur)
		}),
	}
}

// mounted reports why app has no store, for commands that cannot wait for a
// retry.
func mounted(app *keel.App) error {
	if app.Controller.Phase() == boot.Mounted {
		return nil
	}
	if err := app.Controller.Err(); err != nil {
		return err
	}
	return core.ErrNotMounted
}

// startApp wires the application described by cfg and attempts to mount it.
func startApp(ctx context.Context) (*keel.App, error) {
	return keel.Start(ctx,
		keel.WithConfig(cfg),
		keel.WithLogger(slog.Default()),
		keel.WithModules(modules()...),
	)
}
