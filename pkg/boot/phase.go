package boot

// Phase is the lifecycle state of the application.
type Phase int

const (
	Uninitialized Phase = iota
	Initializing
	Mounted
	Unmounted
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}
