package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/pkg/adapters/host"
	"github.com/aretw0/keel/pkg/boot"
)

var resizePoll time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Mount the application and keep it running until interrupted",
	Long: `Mount the application, feed terminal size changes into the store and
serve the debug endpoints when debug.addr is set. Ctrl+C unmounts and exits.

If storage is not ready the failure is logged and the process keeps running;
send SIGHUP to try mounting again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(context.Background()); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
		}()

		source := host.NewViewportSource(4)
		if err := app.Controller.Watch(ctx, source); err != nil {
			return err
		}
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			lifecycle.Go(ctx, func(ctx context.Context) error {
				return pollTerminal(ctx, fd, source)
			}, lifecycle.WithErrorHandler(func(err error) {
				slog.Warn("terminal size polling stopped", "error", err)
			}))
		}

		if cfg.Debug.Addr != "" {
			srv := &http.Server{Addr: cfg.Debug.Addr, Handler: app.DebugServer()}
			lifecycle.Go(ctx, func(ctx context.Context) error {
				slog.Info("debug server listening", "addr", cfg.Debug.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}, lifecycle.WithErrorHandler(func(err error) {
				slog.Error("debug server failed", "error", err)
			}))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		if err := app.Controller.Err(); err != nil {
			slog.Warn("application not mounted, send SIGHUP to retry", "error", err)
		}
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		for {
			select {
			case <-ctx.Done():
				slog.Info("interrupt received, unmounting")
				return nil
			case <-hup:
				retryInit(ctx, app)
			}
		}
	},
}

// retryInit runs Init again when the application is not mounted. Init logs
// its own failure.
func retryInit(ctx context.Context, app *keel.App) {
	if app.Controller.Phase() != boot.Uninitialized {
		slog.Debug("mount retry ignored", "phase", app.Controller.Phase())
		return
	}
	if err := app.Controller.Init(ctx); err == nil {
		slog.Info("application mounted after retry")
	}
}

// pollTerminal publishes the terminal size whenever it changes.
func pollTerminal(ctx context.Context, fd int, source *host.ViewportSource) error {
	interval := resizePoll
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		width, height, err := term.GetSize(fd)
		if err != nil {
			return err
		}
		if err := source.Publish(ctx, width, height); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&resizePoll, "resize-poll", 500*time.Millisecond, "How often the terminal size is checked")
}
