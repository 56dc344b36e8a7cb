package middleware

import "github.com/aretw0/keel/pkg/core"

// ThunkActionType marks actions carrying a ThunkFunc.
const ThunkActionType = "@@keel/THUNK"

// ThunkFunc runs with access to the store instead of reaching reducers.
// Actions it dispatches are processed after it returns.
type ThunkFunc func(dispatch core.DispatchFunc, getState func() core.State) error

// ThunkAction wraps fn into an action.
func ThunkAction(fn ThunkFunc) core.Action {
	return core.Action{Type: ThunkActionType, Payload: fn}
}

// Thunk runs ThunkFunc payloads and passes every other action on.
func Thunk() core.Middleware {
	return func(api core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(action core.Action) error {
				if fn, ok := action.Payload.(ThunkFunc); ok {
					return fn(api.Dispatch, api.GetState)
				}
				return next(action)
			}
		}
	}
}
