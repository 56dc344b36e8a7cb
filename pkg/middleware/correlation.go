package middleware

import (
	"github.com/google/uuid"

	"github.com/aretw0/keel/pkg/core"
)

// MetaID is the Meta key holding an action's correlation ID.
const MetaID = "id"

// CorrelationID stamps each action with a random ID unless it already has one.
// Meta is copied, never mutated in place.
func CorrelationID() core.Middleware {
	return func(api core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(action core.Action) error {
				if _, ok := action.Meta[MetaID]; ok {
					return next(action)
				}
				meta := make(map[string]any, len(action.Meta)+1)
				for k, v := range action.Meta {
					meta[k] = v
				}
				meta[MetaID] = uuid.NewString()
				action.Meta = meta
				return next(action)
			}
		}
	}
}
