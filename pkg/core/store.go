package core

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// InitActionType is never handled by reducers; it only documents the store's birth in logs.
const InitActionType = "@@keel/INIT"

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for queued dispatch failures.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithFaultReporter routes panics raised while dispatching to fn instead of
// letting them propagate.
func WithFaultReporter(fn FaultReporter) StoreOption {
	return func(s *Store) {
		s.faults = fn
	}
}

// Store is the single runtime state container.
//
// All state transitions are serialized. A dispatch issued while another one is
// being processed (from a subscriber, a middleware or another goroutine) is
// queued and handled by the active drain loop, so subscribers always observe a
// consistent Prev/Next pair.
type Store struct {
	reducer  RootReducer
	dispatch DispatchFunc
	logger   *slog.Logger
	faults   FaultReporter

	mu          sync.Mutex
	state       State
	subscribers []*subscription
	queue       []Action
	draining    bool
	dispatched  uint64
	pending     *Change
}

type subscription struct {
	fn Subscriber
}

// NewStore creates a Store around reducer, starting from initial.
// A nil enhancer means actions go straight to the reducer.
func NewStore(reducer RootReducer, initial State, enhancer Enhancer, opts ...StoreOption) *Store {
	if initial == nil {
		initial = State{}
	}
	s := &Store{
		reducer: reducer,
		state:   initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.dispatch = s.reduce
	if enhancer != nil {
		s.dispatch = enhancer(s, s.reduce)
	}

	s.logger.Debug("store created", "keys", len(initial), "marker", InitActionType)
	return s
}

// GetState returns the current root state. Callers must treat it as read-only.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe attaches fn to the store. Subscribers run in attach order.
// The returned function detaches it.
func (s *Store) Subscribe(fn Subscriber) func() {
	sub := &subscription{fn: fn}

	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subscribers {
			if existing == sub {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch sends action through the middleware pipeline to the reducer.
//
// When no dispatch is in flight the action is processed on the caller's
// goroutine and its pipeline error is returned. Otherwise the action is queued
// behind the current one and Dispatch returns nil immediately; failures of
// queued actions are logged.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	if s.draining {
		s.queue = append(s.queue, action)
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	s.mu.Unlock()

	return s.drain(action)
}

// drain processes first and then everything queued behind it.
func (s *Store) drain(first Action) (firstErr error) {
	released := false
	defer func() {
		// Only reached without release when process panicked.
		if !released {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
		}
	}()

	action, isFirst := first, true
	for {
		err := s.process(action)
		if isFirst {
			firstErr = err
		} else if err != nil {
			s.logger.Error("queued dispatch failed", "action", action.Type, "error", err)
		}

		s.mu.Lock()
		if len(s.queue) == 0 {
			// Release ownership in the same critical section that saw the
			// queue empty, otherwise a concurrent enqueue could be stranded.
			s.draining = false
			released = true
			s.mu.Unlock()
			return firstErr
		}
		action = s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		isFirst = false
	}
}

// process runs one action through the pipeline and notifies subscribers.
// A panic is reported as a fatal fault; with no reporter it propagates.
func (s *Store) process(action Action) (err error) {
	s.clearPending()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.clearPending()
		err = s.recovered("store.dispatch("+action.Type+")", r)
	}()

	if err := s.dispatch(action); err != nil {
		return err
	}

	s.mu.Lock()
	change := s.pending
	s.pending = nil
	subs := make([]*subscription, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	if change == nil {
		// The pipeline swallowed the action; nothing reached the reducer.
		return nil
	}
	for _, sub := range subs {
		if perr := s.notify(sub, *change); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

// notify runs one subscriber. A panic is reported and does not stop the
// subscribers behind it.
func (s *Store) notify(sub *subscription, change Change) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.recovered("store.notify("+change.Action.Type+")", r)
		}
	}()
	sub.fn(change)
	return nil
}

// recovered turns a panic value into a reported PanicError, or re-panics
// when no reporter is installed.
func (s *Store) recovered(op string, r any) error {
	perr, ok := r.(*PanicError)
	if !ok {
		perr = &PanicError{
			Op:         op,
			Value:      r,
			StackTrace: string(debug.Stack()),
			Timestamp:  time.Now(),
		}
	}
	if s.faults == nil {
		panic(perr)
	}
	s.faults(perr, true)
	return perr
}

func (s *Store) clearPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// reduce is the terminal link of the pipeline.
func (s *Store) reduce(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := s.reducer(prev, action)
	if next == nil {
		return fmt.Errorf("reducer returned nil state for %q", action.Type)
	}
	s.state = next
	s.dispatched++
	s.pending = &Change{Action: action, Prev: prev, Next: next}
	return nil
}
