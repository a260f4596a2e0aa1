package client

// State is the lifecycle of one import attempt. A single enum replaces the
// running/paused/aborted flag combinations so impossible states cannot be
// expressed.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateProcessing
	StatePaused
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateProcessing:
		return "processing"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}
