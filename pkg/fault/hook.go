// Package fault routes runtime faults through a chain of handlers and
// provides the policy that keeps fatal ones from killing the process.
package fault

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/keel/pkg/core"
)

// Handler receives a fault. fatal is set for recovered panics and anything
// else that would normally terminate the process.
type Handler func(err error, fatal bool)

// Link is one record of the handler chain. Next is the handler that was
// current when this one was installed.
type Link struct {
	ID      string
	Handler Handler
	Next    *Link
}

// Hook is the single mutable slot holding the head of the chain.
type Hook struct {
	mu   sync.RWMutex
	head *Link
}

// DefaultID identifies the base handler of a hook.
const DefaultID = "default"

// NewHook creates a hook whose chain holds only base.
func NewHook(base Handler) *Hook {
	return &Hook{head: &Link{ID: DefaultID, Handler: base}}
}

// Global is the process-wide hook. Its base handler logs non-fatal faults
// and re-panics on fatal ones, which terminates the process.
var Global = NewHook(DefaultHandler)

// DefaultHandler mirrors what the host does without any policy installed.
func DefaultHandler(err error, fatal bool) {
	if fatal {
		panic(err)
	}
	slog.Default().Warn("fault reported", "error", err)
}

// Current returns the head of the chain.
func (h *Hook) Current() *Link {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.head
}

// Prepend installs handler in front of the current chain and returns the new
// head.
func (h *Hook) Prepend(id string, handler Handler) *Link {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = &Link{ID: id, Handler: handler, Next: h.head}
	return h.head
}

// prependUnlessHead is Prepend unless the head already carries id.
func (h *Hook) prependUnlessHead(id string, handler Handler) (*Link, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.head != nil && h.head.ID == id {
		return h.head, false
	}
	h.head = &Link{ID: id, Handler: handler, Next: h.head}
	return h.head, true
}

// Chain lists the IDs from head to base.
func (h *Hook) Chain() []string {
	var ids []string
	for l := h.Current(); l != nil; l = l.Next {
		ids = append(ids, l.ID)
	}
	return ids
}

// Report delivers err to the head of the chain.
func (h *Hook) Report(err error, fatal bool) {
	if err == nil {
		return
	}
	if head := h.Current(); head != nil && head.Handler != nil {
		head.Handler(err, fatal)
	}
}

// Reporter adapts the hook for core.WithFaultReporter.
func (h *Hook) Reporter() core.FaultReporter {
	return h.Report
}

// Recover is a helper for deferred panic recovery. The panic is reported as
// a fatal fault.
// Usage: defer hook.Recover("operation.name")
func (h *Hook) Recover(op string) {
	if r := recover(); r != nil {
		h.Report(&core.PanicError{
			Op:         op,
			Value:      r,
			StackTrace: string(debug.Stack()),
			Timestamp:  time.Now(),
		}, true)
	}
}
