// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyRunning is wrapped by AlreadyRunningError.
	ErrAlreadyRunning = errors.New("install already running")
	// ErrExecutorSpent is returned by Execute on an executor that already ran.
	ErrExecutorSpent = errors.New("executor already used")
	// ErrLoaderCompile is wrapped by LoaderCompileError.
	ErrLoaderCompile = errors.New("loader compile step failed")
	// ErrMalformedInstaller indicates loader metadata or an installer archive
	// that does not have the expected shape.
	ErrMalformedInstaller = errors.New("malformed installer")
)

type (
	// AlreadyRunningError is returned when Execute is called while the same
	// executor is still running. Executor is the running instance so the
	// caller can subscribe to it instead.
	AlreadyRunningError struct {
		Executor Executor
	}

	// LoaderCompileError reports a patch sub-process that exited non-zero.
	// Diagnostics holds its output lines verbatim.
	LoaderCompileError struct {
		Processor   string
		ExitCode    int
		Diagnostics []string
	}
)

// Error implements the error interface.
func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("%s install %s is already running", e.Executor.Kind(), e.Executor.AbsoluteID())
}

// Unwrap returns ErrAlreadyRunning so callers can use errors.Is for programmatic detection.
func (e *AlreadyRunningError) Unwrap() error { return ErrAlreadyRunning }

// Error implements the error interface.
func (e *LoaderCompileError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Processor, e.ExitCode)
	if len(e.Diagnostics) > 0 {
		msg += ": " + strings.Join(e.Diagnostics, "\n")
	}
	return msg
}

// Unwrap returns ErrLoaderCompile so callers can use errors.Is for programmatic detection.
func (e *LoaderCompileError) Unwrap() error { return ErrLoaderCompile }
