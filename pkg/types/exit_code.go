// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ExitCodeKilled stands for a game the launcher terminated itself.
const ExitCodeKilled ExitCode = -1

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the status a game process ended with: 0-255 for a
	// process that exited by itself, or ExitCodeKilled.
	ExitCode int

	// InvalidExitCodeError reports an ExitCode outside those values.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d is neither 0-255 nor %d", e.Value, ExitCodeKilled)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate reports whether c is a code a game session can end with.
func (c ExitCode) Validate() error {
	if c == ExitCodeKilled || (c >= 0 && c <= 255) {
		return nil
	}
	return &InvalidExitCodeError{Value: c}
}

func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsKilled reports a launcher-initiated termination.
func (c ExitCode) IsKilled() bool { return c == ExitCodeKilled }

// ForProcess maps c onto a status the launcher itself can exit with.
// Success stays 0; anything that is not a valid failure code becomes 1.
func (c ExitCode) ForProcess() int {
	if c == 0 {
		return 0
	}
	if c < 1 || c > 255 {
		return 1
	}
	return int(c)
}

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
