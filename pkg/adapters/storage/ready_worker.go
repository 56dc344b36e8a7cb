package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// readyWorker watches a storage directory until the init marker disappears.
type readyWorker struct {
	*worker.BaseWorker
	fs      *FS
	watcher *fsnotify.Watcher
	ready   chan struct{}
	once    sync.Once
	cancel  context.CancelFunc
}

func newReadyWorker(f *FS) *readyWorker {
	return &readyWorker{
		BaseWorker: worker.NewBaseWorker("fs-ready"),
		fs:         f,
		ready:      make(chan struct{}),
	}
}

func (w *readyWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("ready watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.fs.Path); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	// The marker may have vanished between the caller's check and Add.
	if !w.fs.Initializing() {
		w.markReady()
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.fs.setWatching(1)

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *readyWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *readyWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *readyWorker) markReady() {
	w.once.Do(func() { close(w.ready) })
}

func (w *readyWorker) run(ctx context.Context) (err error) {
	logger := w.fs.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("ready watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("ready watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("ready watcher panic", "error", err)
			}
		}
	}()
	defer w.fs.setWatching(-1)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.ready:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Base(event.Name) != MarkerName {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				logger.Debug("storage ready", "path", w.fs.Path)
				w.markReady()
				return nil
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
		}
	}
}
