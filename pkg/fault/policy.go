package fault

import (
	"log/slog"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/keel/pkg/platform"
)

// PolicyID marks chain links installed by a Policy.
const PolicyID = "containment"

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithHook installs into hook instead of Global.
func WithHook(hook *Hook) PolicyOption {
	return func(p *Policy) {
		p.hook = hook
	}
}

// WithDev marks a development build. Dev builds never install the policy.
func WithDev(dev bool) PolicyOption {
	return func(p *Policy) {
		p.dev = dev
	}
}

// WithPlatform overrides platform.Current().
func WithPlatform(id platform.ID) PolicyOption {
	return func(p *Policy) {
		p.platform = id
	}
}

// WithLogger sets the logger contained faults are written to.
func WithLogger(logger *slog.Logger) PolicyOption {
	return func(p *Policy) {
		p.logger = logger
	}
}

// Policy contains fatal faults: they are logged and swallowed. Non-fatal
// faults go on to the handler that was current at install time.
type Policy struct {
	hook     *Hook
	dev      bool
	platform platform.ID
	logger   *slog.Logger

	mu        sync.Mutex
	link      *Link
	wrapped   bool
	contained int
	forwarded int
}

// NewPolicy creates an uninstalled policy.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{hook: Global}
	for _, opt := range opts {
		opt(p)
	}
	if p.platform == "" {
		p.platform = platform.Current()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Install prepends the policy to the hook chain and reports whether it did.
// It is skipped in dev builds and on platforms with their own fault
// interceptor. A policy never wraps a chain twice, and never wraps a chain
// whose head is already a containment link.
func (p *Policy) Install() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.dev:
		p.logger.Debug("fault containment skipped", "reason", "dev build")
		return false
	case platform.HasNativeFaultHandler(p.platform):
		p.logger.Debug("fault containment skipped", "reason", "native handler", "platform", p.platform)
		return false
	case p.wrapped:
		return false
	}

	link, ok := p.hook.prependUnlessHead(PolicyID, p.handle)
	if !ok {
		return false
	}
	p.link = link
	p.wrapped = true
	p.logger.Debug("fault containment installed", "platform", p.platform)
	return true
}

// Installed reports whether Install has taken effect.
func (p *Policy) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wrapped
}

func (p *Policy) handle(err error, fatal bool) {
	p.mu.Lock()
	var next *Link
	if p.link != nil {
		next = p.link.Next
	}
	if fatal {
		p.contained++
	} else {
		p.forwarded++
	}
	p.mu.Unlock()

	if fatal {
		p.logger.Error("fatal fault contained", "error", err)
		return
	}
	if next != nil && next.Handler != nil {
		next.Handler(err, false)
	}
}

// PolicyState exposes internal state for observability.
type PolicyState struct {
	Installed bool   `json:"installed"`
	Dev       bool   `json:"dev"`
	Platform  string `json:"platform"`
	Contained int    `json:"contained"`
	Forwarded int    `json:"forwarded"`
}

// State implements introspection.Introspectable.
func (p *Policy) State() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PolicyState{
		Installed: p.wrapped,
		Dev:       p.dev,
		Platform:  string(p.platform),
		Contained: p.contained,
		Forwarded: p.forwarded,
	}
}

// ComponentType implements introspection.Component.
func (p *Policy) ComponentType() string {
	return "fault_policy"
}

var _ introspection.Introspectable = (*Policy)(nil)
var _ introspection.Component = (*Policy)(nil)
