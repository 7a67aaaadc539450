// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/kilnlauncher/kiln/pkg/types"
)

// ExitError carries the exit code of the game out of RunE without calling
// os.Exit there.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("game exited with code %s", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// processCode is what the kiln process exits with. An ExitError always
// fails the process, even when it carries code 0.
func (e *ExitError) processCode() int {
	if c := e.Code.ForProcess(); c != 0 {
		return c
	}
	return 1
}
