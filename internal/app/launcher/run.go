// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/pkg/types"
)

// ErrGameCrashed is the sentinel error wrapped by CrashedError.
var ErrGameCrashed = errors.New("game crashed")

// CrashedError reports a session that matched a crash signature.
type CrashedError struct {
	Signature string
	Line      string
	ExitCode  types.ExitCode
	// Lines are the last output lines of the game.
	Lines []string
}

func (e *CrashedError) Error() string {
	return fmt.Sprintf("game crashed (%s, exit code %s): %s", e.Signature, e.ExitCode, e.Line)
}

// Unwrap returns ErrGameCrashed for errors.Is() compatibility.
func (e *CrashedError) Unwrap() error { return ErrGameCrashed }

// Launch spawns the game described by spec.
func (l *Launcher) Launch(ctx context.Context, spec launch.Spec) (*launch.Session, error) {
	s, err := l.controller.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("game launched", "session", s.ID(), "pid", s.PID())
	return s, nil
}

// Wait blocks until s has ended and returns its exit code. A faulted
// session returns its fault, a crashed one a *CrashedError. Cancelling ctx
// stops waiting without touching the game.
func (l *Launcher) Wait(ctx context.Context, s *launch.Session) (types.ExitCode, error) {
	select {
	case <-s.Done():
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if err := s.Fault(); err != nil {
		return 0, err
	}
	out, ok := s.Outcome()
	code := types.ExitCode(out.ExitCode)
	if !ok {
		code = types.ExitCodeKilled
	}
	if crash := s.Crash(); crash != nil {
		return code, &CrashedError{Signature: crash.Signature, Line: crash.Line, ExitCode: code, Lines: crash.Lines}
	}
	return code, nil
}
