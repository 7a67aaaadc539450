// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a user-supplied path: a config file, a game
	// directory or a java executable. It may start with "~".
	FilesystemPath string

	// InvalidFilesystemPathError is returned when a FilesystemPath is blank
	// or names another user's home directory.
	InvalidFilesystemPathError struct {
		Value  FilesystemPath
		Reason string
	}
)

func (p FilesystemPath) String() string { return string(p) }

// Validate rejects blank paths and "~user" forms, which are not expanded.
func (p FilesystemPath) Validate() error {
	s := string(p)
	if strings.TrimSpace(s) == "" {
		return &InvalidFilesystemPathError{Value: p, Reason: "must be non-empty"}
	}
	if strings.HasPrefix(s, "~") && len(s) > 1 && s[1] != '/' && s[1] != '\\' {
		return &InvalidFilesystemPathError{Value: p, Reason: "only ~ and ~/ are expanded"}
	}
	return nil
}

// Expand replaces a leading "~" with home and cleans the result. Relative
// paths stay relative.
func (p FilesystemPath) Expand(home string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s := string(p)
	if s == "~" {
		return filepath.Clean(home), nil
	}
	if rest, ok := strings.CutPrefix(s, "~"); ok {
		return filepath.Join(home, rest[1:]), nil
	}
	return filepath.Clean(s), nil
}

func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
