// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"fmt"
	"os"
	"os/exec"
)

// Spec describes one game process.
type Spec struct {
	// Java is the java executable: a path, or a name looked up on PATH.
	Java string
	// Args follow the executable, as produced by launchargs.Build.
	Args []string
	// Dir is the working directory; it must exist.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
	// RequiredFiles must all exist before the process is spawned.
	RequiredFiles []string
}

// Inspect checks that spec can be launched and returns the resolved java
// executable. All problems are collected into one *PreflightFaultError.
func Inspect(spec Spec) (string, error) {
	var problems []error

	java := ""
	if spec.Java == "" {
		problems = append(problems, fmt.Errorf("%w: no executable configured", ErrMissingRuntime))
	} else if path, err := exec.LookPath(spec.Java); err != nil {
		problems = append(problems, fmt.Errorf("%w: %s: %w", ErrMissingRuntime, spec.Java, err))
	} else {
		java = path
	}

	if spec.Dir == "" {
		problems = append(problems, fmt.Errorf("%w: no working directory", ErrMissingFile))
	} else if info, err := os.Stat(spec.Dir); err != nil {
		problems = append(problems, fmt.Errorf("%w: working directory: %w", ErrMissingFile, err))
	} else if !info.IsDir() {
		problems = append(problems, fmt.Errorf("%w: working directory %s is not a directory", ErrMissingFile, spec.Dir))
	}

	for _, f := range spec.RequiredFiles {
		if _, err := os.Stat(f); err != nil {
			problems = append(problems, fmt.Errorf("%w: %w", ErrMissingFile, err))
		}
	}

	if len(problems) > 0 {
		return "", &PreflightFaultError{Problems: problems}
	}
	return java, nil
}
