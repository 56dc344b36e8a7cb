package boot

import "github.com/aretw0/keel/pkg/core"

// Lifecycle action types.
const (
	ActionWillMount     = "keel/APP_WILL_MOUNT"
	ActionWillUnmount   = "keel/APP_WILL_UNMOUNT"
	ActionClientResized = "keel/CLIENT_RESIZED"
)

// Dimensions is the payload of ClientResized.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WillMount marks the application as mounted.
func WillMount() core.Action {
	return core.Action{Type: ActionWillMount}
}

// WillUnmount marks the application as about to be torn down.
func WillUnmount() core.Action {
	return core.Action{Type: ActionWillUnmount}
}

// ClientResized reports a new viewport size.
func ClientResized(width, height int) core.Action {
	return core.Action{
		Type:    ActionClientResized,
		Payload: Dimensions{Width: width, Height: height},
	}
}
