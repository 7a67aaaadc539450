// SPDX-License-Identifier: MPL-2.0

package download

import (
	"errors"
	"fmt"
	"strings"
)

// maxListedFailures bounds how many failed paths IncompleteResourcesError.Error prints.
const maxListedFailures = 5

var (
	// ErrIncompleteResources is wrapped by IncompleteResourcesError.
	ErrIncompleteResources = errors.New("incomplete resources")
	// ErrFilesystem is wrapped around local write, rename and directory failures.
	ErrFilesystem = errors.New("filesystem error")
	// ErrAttemptTimeout indicates a single attempt exceeded its time budget.
	ErrAttemptTimeout = errors.New("attempt timed out")
)

// IncompleteResourcesError aggregates the failed elements of an Acquire call.
// It unwraps to ErrIncompleteResources and, when the call was cancelled, to
// the context error.
type IncompleteResourcesError struct {
	Failed []Result
	Total  int
	Cause  error
}

// Error summarizes the failures.
func (e *IncompleteResourcesError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d resources could not be acquired", len(e.Failed), e.Total)
	for i, r := range e.Failed {
		if i == maxListedFailures {
			fmt.Fprintf(&sb, "; and %d more", len(e.Failed)-maxListedFailures)
			break
		}
		fmt.Fprintf(&sb, "; %s (%s)", r.Element.Path, r.Kind)
	}
	return sb.String()
}

// Unwrap exposes ErrIncompleteResources and the cause to errors.Is/As.
func (e *IncompleteResourcesError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrIncompleteResources}
	}
	return []error{ErrIncompleteResources, e.Cause}
}

// Paths returns the destination paths of the failed elements.
func (e *IncompleteResourcesError) Paths() []string {
	paths := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		paths[i] = r.Element.Path
	}
	return paths
}

// Count returns the number of failed elements.
func (e *IncompleteResourcesError) Count() int {
	return len(e.Failed)
}
