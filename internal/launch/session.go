// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	// Session is one launch attempt. It exposes the process ID but never
	// the process handle.
	Session struct {
		id   string
		done chan struct{}

		mu      sync.Mutex
		state   State
		history []State
		pid     int
		started time.Time
		outcome *Outcome
		crash   *CrashData
		fault   error
	}

	// Outcome describes how the process ended.
	Outcome struct {
		RunTime  time.Duration
		ExitCode int
		// IsNormal is true iff the process exited on its own with code 0.
		IsNormal bool
		// Terminated is set when the exit was requested through Terminate.
		Terminated bool
	}
)

func newSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		done:    make(chan struct{}),
		state:   StateReady,
		history: []State{StateReady},
	}
}

// ID identifies the session in events and logs.
func (s *Session) ID() string { return s.id }

// PID returns the process ID, or 0 before the process was spawned.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state the session has been in, in order.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Done is closed once the session is faulted or its process has been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Outcome returns how the process ended. ok is false while it is alive and
// for faulted sessions.
func (s *Session) Outcome() (o Outcome, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// Crash returns the crash data of a crashed session. Once the process has
// been reaped, Lines include the output written after the signature.
func (s *Session) Crash() *CrashData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crash == nil {
		return nil
	}
	c := *s.crash
	c.Lines = slices.Clone(c.Lines)
	return &c
}

// Fault returns the error that faulted the session.
func (s *Session) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Session) startedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// advance moves the session to next if the transition is legal.
func (s *Session) advance(next State, ev *Event) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	if !CanTransition(from, next) {
		return from, false
	}
	s.state = next
	s.history = append(s.history, next)
	if ev.Outcome != nil {
		o := *ev.Outcome
		s.outcome = &o
	}
	if ev.Crash != nil {
		c := *ev.Crash
		s.crash = &c
	}
	if ev.Fault != nil {
		s.fault = ev.Fault
	}
	return from, true
}

// reaped records the exit of a process whose session already left Running.
func (s *Session) reaped(o Outcome, lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		s.outcome = &o
	}
	if s.crash != nil {
		s.crash.Lines = lines
	}
}
