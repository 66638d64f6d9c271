package cohort

import "fmt"

// State is the detector's subscription state.
type State int32

const (
	StateStopped State = iota
	StateConnecting
	StateListening
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateBackoff:
		return "backoff"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
