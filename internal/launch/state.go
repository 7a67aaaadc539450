// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"fmt"
	"slices"
)

const (
	// StateReady is the state of a session that has not spawned anything yet.
	StateReady State = iota
	// StateStarting is entered once preflight has passed and the process is being spawned.
	StateStarting
	// StateRunning means the process handle is held and its output is monitored.
	StateRunning
	// StateExited is terminal: the process ended without a crash signature, or was terminated.
	StateExited
	// StateCrashed is terminal: a crash signature appeared in the output.
	StateCrashed
	// StateFaulted is terminal: the environment could not launch the process.
	StateFaulted
)

// State is the lifecycle state of a session.
type State int32

// transitions lists the legal successors of every non-terminal state.
var transitions = map[State][]State{
	StateReady:    {StateStarting, StateFaulted},
	StateStarting: {StateRunning, StateFaulted},
	StateRunning:  {StateExited, StateCrashed},
}

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateCrashed:
		return "crashed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Validate returns an error wrapping ErrInvalidState for undefined values.
func (s State) Validate() error {
	if s < StateReady || s > StateFaulted {
		return fmt.Errorf("%w: unknown state %d", ErrInvalidState, int32(s))
	}
	return nil
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateCrashed || s == StateFaulted
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
