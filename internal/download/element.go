// SPDX-License-Identifier: MPL-2.0

package download

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// KindNone marks a successful result.
	KindNone ErrorKind = iota
	// KindTransient is a network failure, timeout or server error that
	// persisted through every attempt.
	KindTransient
	// KindIntegrity is a checksum or size mismatch that persisted through every attempt.
	KindIntegrity
	// KindUnavailable is a definitive refusal by the source (not found,
	// forbidden, unsupported URL). It is not retried.
	KindUnavailable
	// KindFilesystem is a local write or rename failure. It is not retried.
	KindFilesystem
	// KindCanceled marks elements left unfinished because the call was cancelled.
	KindCanceled
	// KindInvalid marks an element whose fields cannot describe a download.
	KindInvalid
)

// ErrInvalidElement is wrapped by element validation failures.
var ErrInvalidElement = errors.New("invalid download element")

type (
	// ErrorKind classifies why an element failed.
	ErrorKind int

	// Element is one file to acquire. Path is the absolute destination and
	// also the element's identity within a call.
	Element struct {
		Path     string
		URL      string
		Checksum Checksum
		// Size in bytes. Zero means unknown.
		Size int64
	}

	// Result is the outcome of one Element.
	Result struct {
		Element Element
		// Succeeded is true when the file is present and verified.
		Succeeded bool
		// Skipped is true when the file was already present and valid, so no
		// transfer happened.
		Skipped bool
		// Attempts counts transfer attempts made. Zero for skipped elements.
		Attempts int
		Kind     ErrorKind
		Err      error
	}
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindIntegrity:
		return "integrity"
	case KindUnavailable:
		return "unavailable"
	case KindFilesystem:
		return "filesystem"
	case KindCanceled:
		return "canceled"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient || k == KindIntegrity
}

// Validate checks that the element can be acquired.
func (e Element) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Path) == "" {
		errs = append(errs, errors.New("destination path is empty"))
	} else if !filepath.IsAbs(e.Path) {
		errs = append(errs, fmt.Errorf("destination path %q is not absolute", e.Path))
	}
	if strings.TrimSpace(e.URL) == "" {
		errs = append(errs, errors.New("source url is empty"))
	}
	if e.Size < 0 {
		errs = append(errs, fmt.Errorf("negative size %d", e.Size))
	}
	if err := e.Checksum.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %s: %w", ErrInvalidElement, e.Path, errors.Join(errs...))
	}
	return nil
}

func (e Element) key() string {
	return filepath.Clean(e.Path)
}
