package boot

import (
	"time"

	"github.com/aretw0/introspection"
)

// ControllerState exposes internal state for observability.
type ControllerState struct {
	Phase     string     `json:"phase"`
	RunID     string     `json:"run_id,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	MountedAt *time.Time `json:"mounted_at,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Controller) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := ControllerState{
		Phase: c.phase.String(),
		RunID: c.runID,
	}
	if c.err != nil {
		s.LastError = c.err.Error()
	}
	if !c.mountedAt.IsZero() {
		t := c.mountedAt
		s.MountedAt = &t
	}
	return s
}

// ComponentType implements introspection.Component.
func (c *Controller) ComponentType() string {
	return "controller"
}

var _ introspection.Introspectable = (*Controller)(nil)
var _ introspection.Component = (*Controller)(nil)
