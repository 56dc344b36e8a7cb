// Package viewport keeps the last reported client dimensions in the store and
// derives a layout breakpoint from them.
package viewport

import (
	"github.com/aretw0/keel/pkg/boot"
	"github.com/aretw0/keel/pkg/core"
	"github.com/aretw0/keel/pkg/registry"
)

// Key is the state subtree owned by this feature.
const Key = "viewport"

// Breakpoint is a coarse width class.
type Breakpoint string

const (
	Compact  Breakpoint = "compact"
	Regular  Breakpoint = "regular"
	Expanded Breakpoint = "expanded"
)

// Widths at which the breakpoint changes, in columns.
const (
	RegularWidth  = 80
	ExpandedWidth = 160
)

// Classify maps a width to its breakpoint.
func Classify(width int) Breakpoint {
	switch {
	case width >= ExpandedWidth:
		return Expanded
	case width >= RegularWidth:
		return Regular
	default:
		return Compact
	}
}

// Reduce stores the payload of every ClientResized action.
func Reduce(state any, action core.Action) any {
	if action.Type != boot.ActionClientResized {
		return state
	}
	dims, ok := action.Payload.(boot.Dimensions)
	if !ok {
		return state
	}
	return dims
}

// Dimensions reads the viewport from a state tree.
func Dimensions(state core.State) boot.Dimensions {
	dims, _ := state[Key].(boot.Dimensions)
	return dims
}

// Module registers the reducer and, when onBreakpoint is not nil, a listener
// firing only when the breakpoint changes.
func Module(onBreakpoint func(prev, cur Breakpoint)) registry.Module {
	return registry.ModuleFunc{ID: Key, Fn: func(set *registry.Set) error {
		if err := set.Reducers.Register(Key, boot.Dimensions{}, Reduce); err != nil {
			return err
		}
		if onBreakpoint == nil {
			return nil
		}
		return set.Listeners.Register(Key+"/breakpoint",
			func(s core.State) any { return Classify(Dimensions(s).Width) },
			func(prev, cur any) { onBreakpoint(prev.(Breakpoint), cur.(Breakpoint)) },
		)
	}}
}
