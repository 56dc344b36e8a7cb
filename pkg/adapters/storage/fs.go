package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/keel/pkg/core"
)

// MarkerName is the file whose presence means the directory is still being
// prepared by another party. Ready blocks until it is gone.
const MarkerName = ".initializing"

const valueExt = ".json"

// FSOption configures an FS backend.
type FSOption func(*FS)

// WithFSLogger sets the logger used by the readiness watcher.
func WithFSLogger(logger *slog.Logger) FSOption {
	return func(f *FS) {
		f.logger = logger
	}
}

// WithFileMode sets the permission bits of value files. Default 0644.
func WithFileMode(mode os.FileMode) FSOption {
	return func(f *FS) {
		f.mode = mode
	}
}

// FS stores one file per key under a directory.
type FS struct {
	Path string

	logger *slog.Logger
	mode   os.FileMode

	mu       sync.RWMutex
	watching int
}

// NewFS creates a backend rooted at path. The directory is created lazily.
func NewFS(path string, opts ...FSOption) *FS {
	f := &FS{Path: path, mode: 0644}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

func (f *FS) filename(key string) string {
	return filepath.Join(f.Path, url.PathEscape(key)+valueExt)
}

func (f *FS) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(f.filename(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FS) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Path, 0755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}
	return replaceValue(f.filename(key), value, f.mode)
}

// Keys lists the stored keys in sorted order.
func (f *FS) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, valueExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, valueExt))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Initializing reports whether the marker file is present.
func (f *FS) Initializing() bool {
	_, err := os.Stat(filepath.Join(f.Path, MarkerName))
	return err == nil
}

// BeginInit creates the marker, holding back every Ready call until EndInit.
func (f *FS) BeginInit() error {
	if err := os.MkdirAll(f.Path, 0755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}
	return os.WriteFile(filepath.Join(f.Path, MarkerName), nil, 0644)
}

// EndInit removes the marker.
func (f *FS) EndInit() error {
	err := os.Remove(filepath.Join(f.Path, MarkerName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Ready returns immediately when no marker is present. Otherwise it watches
// the directory until the marker is removed or ctx ends.
func (f *FS) Ready(ctx context.Context) error {
	if !f.Initializing() {
		return nil
	}

	w := newReadyWorker(f)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.Path, err)
	}
	defer func() {
		_ = w.Stop(context.Background())
	}()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", core.ErrNotReady, ctx.Err())
	}
}

func (f *FS) setWatching(delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watching += delta
}

// State implements introspection.Introspectable.
func (f *FS) State() any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return BackendState{
		Driver:   "fs",
		Location: f.Path,
		Ready:    !f.Initializing(),
		Watching: f.watching > 0,
	}
}

// ComponentType implements introspection.Component.
func (f *FS) ComponentType() string {
	return "storage"
}

var _ core.Storage = (*FS)(nil)
var _ introspection.Introspectable = (*FS)(nil)
var _ introspection.Component = (*FS)(nil)
