// Package host bridges host-side notifications into lifecycle events.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"
)

// DimensionsChanged reports a new viewport size.
type DimensionsChanged struct {
	Width  int
	Height int
}

// String implements lifecycle.Event.
func (e DimensionsChanged) String() string {
	return fmt.Sprintf("dimensions %dx%d", e.Width, e.Height)
}

// ViewportSource is a lifecycle.Source of viewport size changes.
// Consecutive identical sizes are collapsed.
type ViewportSource struct {
	in  chan DimensionsChanged
	out chan lifecycle.Event

	mu      sync.Mutex
	last    DimensionsChanged
	started bool
}

// NewViewportSource creates a source buffering up to buffer pending sizes.
func NewViewportSource(buffer int) *ViewportSource {
	return &ViewportSource{
		in:  make(chan DimensionsChanged, buffer),
		out: make(chan lifecycle.Event),
	}
}

// Publish queues a new size. It blocks while the buffer is full.
func (s *ViewportSource) Publish(ctx context.Context, width, height int) error {
	select {
	case s.in <- DimensionsChanged{Width: width, Height: height}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Last returns the most recently emitted size.
func (s *ViewportSource) Last() DimensionsChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *ViewportSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start runs the bridge on a tracked goroutine until ctx ends.
func (s *ViewportSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("viewport source already started")
	}
	s.started = true
	s.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-s.in:
				if !s.advance(e) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (s *ViewportSource) advance(e DimensionsChanged) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == s.last {
		return false
	}
	s.last = e
	return true
}

var _ lifecycle.Source = (*ViewportSource)(nil)
var _ lifecycle.Event = DimensionsChanged{}
