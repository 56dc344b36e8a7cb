package core

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrDuplicateKey    = errors.New("key already registered")
	ErrRegistryFrozen  = errors.New("registry is frozen")
	ErrAlreadyComposed = errors.New("store already composed")
	ErrNotMounted      = errors.New("application is not mounted")
	ErrNotReady        = errors.New("storage backend is not ready")
)

// DuplicateKeyError is returned when a key is registered twice in the same registry.
type DuplicateKeyError struct {
	Registry string
	Key      string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s registry: key %q already registered", e.Registry, e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// InitializationError wraps whatever stopped the application from mounting.
type InitializationError struct {
	// Stage is "storage" or "compose".
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed during %s: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// PersistenceError describes a failed read or write against the storage backend.
type PersistenceError struct {
	Op  string // "read", "decode", "encode" or "write"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g. "store.dispatch").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	Timestamp  time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
