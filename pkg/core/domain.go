// Package core holds the domain types shared by every keel package: actions,
// the root state tree, reducers, middleware and the Store itself.
package core

// Action describes a state transition request.
// Type is the only required field; reducers and middleware switch on it.
type Action struct {
	Type    string
	Payload any
	Meta    map[string]any
}

// String implements fmt.Stringer so actions read well in logs.
func (a Action) String() string {
	return a.Type
}

// State is the root state tree, keyed by reducer keys.
type State map[string]any

// Reducer maps (current subtree, action) to the next subtree.
// Reducers must be pure: return the input unchanged when the action is not theirs.
type Reducer func(state any, action Action) any

// RootReducer reduces the whole state tree.
type RootReducer func(state State, action Action) State

// Selector derives a value from the full state tree.
type Selector func(state State) any

// DispatchFunc is one link of the dispatch pipeline.
type DispatchFunc func(action Action) error

// MiddlewareAPI is the view of the store handed to middleware.
type MiddlewareAPI interface {
	GetState() State
	Dispatch(action Action) error
}

// Middleware intercepts actions before they reach the reducer.
// It may observe, transform, delay or swallow them.
type Middleware func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc

// Enhancer builds the final dispatch pipeline around the base reducer dispatch.
type Enhancer func(api MiddlewareAPI, base DispatchFunc) DispatchFunc

// Change is delivered to store subscribers after every reduced action.
type Change struct {
	Action Action
	Prev   State
	Next   State
}

// Subscriber is notified synchronously after each dispatch.
type Subscriber func(change Change)

// FaultReporter receives faults raised while dispatching.
// fatal is true for recovered panics.
type FaultReporter func(err error, fatal bool)
