// SPDX-License-Identifier: MPL-2.0

package download

import (
	"crypto/sha1" //nolint:gosec // Game artifacts are published with SHA-1 digests.
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

const (
	// AlgorithmNone means the element is not verified by digest.
	AlgorithmNone Algorithm = iota
	// AlgorithmSHA1 is selected by 40-character checksums.
	AlgorithmSHA1
	// AlgorithmSHA256 is selected by 64-character checksums.
	AlgorithmSHA256
)

var (
	// ErrChecksumMismatch indicates the computed digest does not match the expected one.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrSizeMismatch indicates the transferred byte count differs from the declared size.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrInvalidChecksum indicates a checksum string that is not a SHA-1 or SHA-256 hex digest.
	ErrInvalidChecksum = errors.New("invalid checksum")
)

type (
	// Algorithm is a digest algorithm.
	Algorithm int

	// Checksum is a lowercase or uppercase hex digest. Its length selects
	// the algorithm. The empty Checksum disables digest verification.
	Checksum string

	// ChecksumError provides details about a checksum verification failure.
	// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
	ChecksumError struct {
		Path     string
		Expected string
		Got      string
	}

	// SizeError reports a transfer whose length differs from the declared size.
	SizeError struct {
		Path     string
		Expected int64
		Got      int64
	}
)

// Error returns a human-readable description of the checksum mismatch.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Error returns a human-readable description of the size mismatch.
func (e *SizeError) Error() string {
	return fmt.Sprintf("size verification failed for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrSizeMismatch so callers can use errors.Is.
func (e *SizeError) Unwrap() error { return ErrSizeMismatch }

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA1:
		return "sha1"
	case AlgorithmSHA256:
		return "sha256"
	default:
		return "none"
	}
}

// New returns a fresh hash for the algorithm, or nil for AlgorithmNone.
func (a Algorithm) New() hash.Hash {
	switch a {
	case AlgorithmSHA1:
		return sha1.New() //nolint:gosec // see import
	case AlgorithmSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// Algorithm returns the algorithm selected by the checksum length.
func (c Checksum) Algorithm() (Algorithm, error) {
	switch {
	case c == "":
		return AlgorithmNone, nil
	case !isHex(string(c)):
		return AlgorithmNone, fmt.Errorf("%w: %q is not hex", ErrInvalidChecksum, c)
	case len(c) == 40:
		return AlgorithmSHA1, nil
	case len(c) == 64:
		return AlgorithmSHA256, nil
	default:
		return AlgorithmNone, fmt.Errorf("%w: %d hex characters", ErrInvalidChecksum, len(c))
	}
}

// Validate returns an error if the checksum is neither empty nor a valid digest.
func (c Checksum) Validate() error {
	_, err := c.Algorithm()
	return err
}

// Matches compares a computed hex digest with the checksum, ignoring case.
func (c Checksum) Matches(digest string) bool {
	return strings.EqualFold(string(c), digest)
}

// VerifyFile hashes the file at path and compares it with expected.
// Returns nil when they match or expected is empty, a *ChecksumError when they differ.
func VerifyFile(path string, expected Checksum) error {
	algo, err := expected.Algorithm()
	if err != nil {
		return err
	}
	if algo == AlgorithmNone {
		return nil
	}

	got, err := ComputeFileHash(path, algo)
	if err != nil {
		return err
	}
	if !expected.Matches(got) {
		return &ChecksumError{Path: path, Expected: strings.ToLower(string(expected)), Got: got}
	}
	return nil
}

// ComputeFileHash streams the file at path through algo and returns the
// lowercase hex digest.
func ComputeFileHash(path string, algo Algorithm) (_ string, err error) {
	h := algo.New()
	if h == nil {
		return "", fmt.Errorf("%w: no algorithm", ErrInvalidChecksum)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
