package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/keel/pkg/core"
)

// Memory is an in-process backend. It forgets everything when the process
// exits, which makes it the default for tests and the dev CLI.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	ready chan struct{}
	once  sync.Once
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithPending makes Ready block until MarkReady is called.
func WithPending() MemoryOption {
	return func(m *Memory) {
		m.ready = make(chan struct{})
	}
}

// WithData seeds the backend.
func WithData(data map[string]string) MemoryOption {
	return func(m *Memory) {
		for k, v := range data {
			m.data[k] = v
		}
	}
}

// NewMemory creates an empty backend that is ready immediately unless
// WithPending is given.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string]string)}
	for _, opt := range opts {
		opt(m)
	}
	if m.ready == nil {
		m.ready = make(chan struct{})
		m.MarkReady()
	}
	return m
}

// MarkReady releases every pending Ready call. Idempotent.
func (m *Memory) MarkReady() {
	m.once.Do(func() { close(m.ready) })
}

func (m *Memory) Ready(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", core.ErrNotReady, ctx.Err())
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Keys lists the stored keys in sorted order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot returns a copy of the stored data.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// BackendState exposes a backend's internal state for observability.
type BackendState struct {
	Driver   string `json:"driver"`
	Location string `json:"location,omitempty"`
	Ready    bool   `json:"ready"`
	Watching bool   `json:"watching,omitempty"`
}

// State implements introspection.Introspectable.
func (m *Memory) State() any {
	ready := false
	select {
	case <-m.ready:
		ready = true
	default:
	}
	return BackendState{Driver: "memory", Ready: ready}
}

// ComponentType implements introspection.Component.
func (m *Memory) ComponentType() string {
	return "storage"
}

var _ core.Storage = (*Memory)(nil)
var _ introspection.Introspectable = (*Memory)(nil)
var _ introspection.Component = (*Memory)(nil)
