// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrBrokenChain indicates an inheritsFrom reference that cannot be resolved.
	ErrBrokenChain = errors.New("broken inheritance chain")
	// ErrInvalidVersionID indicates a version ID that cannot name a directory.
	ErrInvalidVersionID = errors.New("invalid version id")
	// ErrInvalidCoordinate indicates a malformed Maven coordinate.
	ErrInvalidCoordinate = errors.New("invalid maven coordinate")
)

// ConfigurationError reports descriptor or parameter data that can never
// succeed without user intervention. It is never retried.
type ConfigurationError struct {
	// Subject names the version, library or parameter at fault.
	Subject string
	// Reason is a short human-readable description.
	Reason string
	// Err is the underlying cause. Optional.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrConfiguration and the cause to errors.Is/As.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// NewConfigurationError builds a ConfigurationError.
func NewConfigurationError(subject, reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: reason, Err: cause}
}
