// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/kilnlauncher/kiln/internal/notify"
)

const (
	// DefaultOutputLines is the number of output lines kept for CrashData.
	DefaultOutputLines = 500
	// DefaultCrashGracePeriod is how long a crashed process may linger.
	DefaultCrashGracePeriod = 10 * time.Second
	// DefaultOutputDrainDelay bounds how long output is still read after the
	// game exited, e.g. while a child it spawned keeps stdout open.
	DefaultOutputDrainDelay = 5 * time.Second

	// maxLineSize caps one output line; longer lines end the scan.
	maxLineSize = 1 << 20
)

const (
	// EventTransition reports a state change.
	EventTransition EventKind = iota
	// EventOutput carries one line of process output.
	EventOutput
)

type (
	// Clock abstracts time for run times and the crash grace period.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
		Since(t time.Time) time.Duration
	}

	// EventKind discriminates Event.
	EventKind int

	// Event is published for every transition and every output line.
	// Transition events set From and To, plus Outcome when entering
	// StateExited, Crash when entering StateCrashed, and Fault when entering
	// StateFaulted.
	Event struct {
		Session *Session
		Kind    EventKind
		From    State
		To      State
		Outcome *Outcome
		Crash   *CrashData
		Fault   error
		Line    string
	}

	// Controller owns the game process. Only one session is live at a time.
	Controller struct {
		clock      Clock
		logger     *slog.Logger
		signatures []Signature
		ringSize   int
		grace      time.Duration
		drain      time.Duration
		hub        *notify.Hub[Event]

		// mu guards the session pointer and the process handle. Holding it
		// while publishing keeps transition events in order.
		mu      sync.Mutex
		session *Session

		// proc is the live process, or nil once it was killed or reaped.
		proc   *os.Process
		closed bool
	}

	// realClock is the wall clock used unless WithClock is given.
	realClock struct{}
)

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) Since(t time.Time) time.Duration        { return time.Since(t) }

// NewController creates an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		clock:      realClock{},
		logger:     slog.Default(),
		signatures: DefaultSignatures(),
		ringSize:   DefaultOutputLines,
		grace:      DefaultCrashGracePeriod,
		drain:      DefaultOutputDrainDelay,
		hub:        notify.NewHub[Event](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe returns a subscription to transition and output events.
func (c *Controller) Subscribe() (*notify.Subscription[Event], error) {
	return c.hub.Subscribe()
}

// Session returns the most recent session, or nil before the first Launch.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// State returns the state of the most recent session, or StateReady.
func (c *Controller) State() State {
	if s := c.Session(); s != nil {
		return s.State()
	}
	return StateReady
}

// Launch inspects spec and spawns the process. A preflight failure faults
// the new session and returns a *PreflightFaultError; the faulted session
// stays available through Session. While another session is live Launch
// returns an *AlreadyRunningError carrying it.
func (c *Controller) Launch(ctx context.Context, spec Spec) (*Session, error) {
	s, err := c.begin()
	if err != nil {
		return nil, err
	}

	java, err := Inspect(spec)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		c.fault(s, err)
		return nil, err
	}

	// Both streams share one pipe so lines keep their interleaving.
	cmd := exec.Command(java, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.WaitDelay = c.drain
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	c.mu.Lock()
	if c.closed {
		c.transition(s, StateFaulted, Event{Fault: ErrControllerClosed})
		c.mu.Unlock()
		close(s.done)
		return nil, ErrControllerClosed
	}
	s.mu.Lock()
	s.started = c.clock.Now()
	s.mu.Unlock()
	c.transition(s, StateStarting, Event{})

	if err := cmd.Start(); err != nil {
		fault := &PreflightFaultError{Problems: []error{fmt.Errorf("%w: start %s: %w", ErrMissingRuntime, java, err)}}
		c.transition(s, StateFaulted, Event{Fault: fault})
		c.mu.Unlock()
		_ = pw.Close()
		close(s.done)
		c.logger.Warn("game process could not start", "session", s.id, "error", err)
		return nil, fault
	}

	c.proc = cmd.Process
	s.mu.Lock()
	s.pid = cmd.Process.Pid
	s.mu.Unlock()
	c.transition(s, StateRunning, Event{})
	c.mu.Unlock()

	c.logger.Info("game started", "session", s.id, "pid", cmd.Process.Pid)
	go c.monitor(s, cmd, pr, pw)
	return s, nil
}

// Terminate kills the running process and moves the session to StateExited
// with ExitCode -1. It fails with *InvalidStateError unless the session is
// Running.
func (c *Controller) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	state := StateReady
	if s != nil {
		state = s.State()
	}
	if state != StateRunning || c.proc == nil {
		return &InvalidStateError{Op: "terminate", State: state}
	}

	if err := c.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate session %s: %w", s.id, err)
	}
	c.proc = nil
	c.transition(s, StateExited, Event{Outcome: &Outcome{
		RunTime:    c.clock.Since(s.startedAt()),
		ExitCode:   -1,
		Terminated: true,
	}})
	c.logger.Info("game terminated", "session", s.id)
	return nil
}

// Close kills any live process, waits until it is reaped, and closes every
// subscription. Launch fails with ErrControllerClosed afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	s := c.session
	if c.proc != nil {
		_ = c.proc.Kill() // The monitor reports the exit.
	}
	c.mu.Unlock()

	if s != nil {
		<-s.done
	}
	c.hub.Close()
	return nil
}

// begin reserves a fresh session. It refuses while the current session is
// not terminal or after Close.
func (c *Controller) begin() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrControllerClosed
	}
	if cur := c.session; cur != nil && !cur.State().IsTerminal() {
		return nil, &AlreadyRunningError{Session: cur}
	}
	s := newSession()
	c.session = s
	return s, nil
}

// fault moves s from Ready to Faulted before any process exists and
// finishes it.
func (c *Controller) fault(s *Session, err error) {
	c.mu.Lock()
	c.transition(s, StateFaulted, Event{Fault: err})
	c.mu.Unlock()
	close(s.done)
	c.logger.Warn("launch faulted", "session", s.id, "error", err)
}

// transition advances s to the given state and publishes the event. Illegal
// transitions, including any move out of a terminal state, are dropped and
// reported as false. It must be called with c.mu held so events are
// published in transition order.
func (c *Controller) transition(s *Session, to State, ev Event) bool {
	from, ok := s.advance(to, &ev)
	if !ok {
		c.logger.Debug("transition ignored", "session", s.id, "from", from, "to", to)
		return false
	}
	ev.Session = s
	ev.Kind = EventTransition
	ev.From = from
	ev.To = to
	c.logger.Debug("launch state changed", "session", s.id, "from", from, "to", to)
	c.hub.Publish(ev)
	return true
}

// monitor runs for the lifetime of one process. It publishes each output
// line, keeps the newest ones in a ring, checks them against the crash
// signatures and reaps the process once output ends. s.done closes when it
// returns.
func (c *Controller) monitor(s *Session, cmd *exec.Cmd, pr *io.PipeReader, pw *io.PipeWriter) {
	defer close(s.done)

	// pw closes only after Wait, so the scan below sees every line.
	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waitErr <- err
	}()

	lines := newRing(c.ringSize)
	matched := false
	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		lines.add(line)
		c.hub.Publish(Event{Session: s, Kind: EventOutput, Line: line})
		if matched {
			continue
		}
		if name, ok := matchSignature(c.signatures, line); ok {
			matched = true
			c.crash(s, cmd.Process, CrashData{Signature: name, Line: line, Lines: lines.lines()})
		}
	}
	if err := sc.Err(); err != nil {
		c.logger.Warn("game output unreadable", "session", s.id, "error", err)
		_, _ = io.Copy(io.Discard, pr)
	}

	err := <-waitErr
	c.reap(s, cmd, err, lines.lines())
}

// crash moves s to Crashed on the first matching line and arms the grace
// timer. The process is killed when the timer fires unless it exited or was
// replaced in the meantime.
func (c *Controller) crash(s *Session, proc *os.Process, data CrashData) {
	grace := c.clock.After(c.grace)

	c.mu.Lock()
	ok := c.transition(s, StateCrashed, Event{Crash: &data})
	c.mu.Unlock()
	if !ok {
		return
	}
	c.logger.Warn("game crashed", "session", s.id, "signature", data.Signature, "line", data.Line)

	go func() {
		select {
		case <-s.done:
		case <-grace:
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.proc != proc {
				return
			}
			if err := proc.Kill(); err == nil {
				c.logger.Info("killed crashed game", "session", s.id, "grace", c.grace)
			}
		}
	}()
}

// reap records how the process ended. A Running session becomes Exited; a
// Crashed one only gains its outcome; a terminated one was already reported.
func (c *Controller) reap(s *Session, cmd *exec.Cmd, waitErr error, lines []string) {
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(waitErr, exec.ErrWaitDelay):
		c.logger.Debug("game output still open after exit; stopped reading", "session", s.id, "delay", c.drain)
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		c.logger.Debug("game process wait failed", "session", s.id, "error", waitErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == cmd.Process {
		c.proc = nil
	}

	out := Outcome{RunTime: c.clock.Since(s.startedAt()), ExitCode: code, IsNormal: code == 0}
	switch s.State() {
	case StateRunning:
		c.transition(s, StateExited, Event{Outcome: &out})
		c.logger.Info("game exited", "session", s.id, "code", code, "run_time", out.RunTime)
	case StateCrashed:
		out.IsNormal = false
		s.reaped(out, lines)
	default:
		// Terminated; the exit was already reported.
	}
}
