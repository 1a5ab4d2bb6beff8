package node

import (
	"sync/atomic"
)

// State captures the state of a Process: Active or Stopped
type State uint32

const (
	// Active is the initial state of a Process. It accepts sends and
	// receives.
	Active State = iota
	// Stopped is the terminal state of a Process.
	Stopped
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
