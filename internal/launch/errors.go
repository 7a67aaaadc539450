// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyRunning is returned by Launch while a session is live.
	ErrAlreadyRunning = errors.New("a game session is already running")
	// ErrInvalidState is returned for operations the current state does not permit.
	ErrInvalidState = errors.New("invalid launch state")
	// ErrPreflight is wrapped by every PreflightFaultError.
	ErrPreflight = errors.New("launch preflight failed")
	// ErrMissingRuntime is a preflight problem: the java executable cannot be found.
	ErrMissingRuntime = errors.New("java runtime not found")
	// ErrMissingFile is a preflight problem: a required file or directory is absent.
	ErrMissingFile = errors.New("required file missing")
	// ErrControllerClosed is returned by Launch after Close.
	ErrControllerClosed = errors.New("launch controller closed")
)

type (
	// AlreadyRunningError carries the live session so the caller can observe
	// it instead of starting another.
	AlreadyRunningError struct {
		Session *Session
	}

	// InvalidStateError reports an operation attempted in a state that does
	// not allow it.
	InvalidStateError struct {
		Op    string
		State State
	}

	// PreflightFaultError lists every problem found by Inspect.
	PreflightFaultError struct {
		Problems []error
	}
)

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("session %s is %s", e.Session.ID(), e.Session.State())
}

func (e *AlreadyRunningError) Unwrap() error { return ErrAlreadyRunning }

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

func (e *PreflightFaultError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "launch preflight failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes ErrPreflight and each problem.
func (e *PreflightFaultError) Unwrap() []error {
	return append([]error{ErrPreflight}, e.Problems...)
}
