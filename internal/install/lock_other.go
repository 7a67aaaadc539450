// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package install

import (
	"context"
	"errors"
)

// errFlockUnavailable makes the caller fall back to the in-process lock.
var errFlockUnavailable = errors.New("flock not available on this platform")

func acquireInstallLock(context.Context, string) (*installLock, error) {
	return nil, errFlockUnavailable
}

type installLock struct{}

// Release is a no-op on non-Linux platforms.
func (l *installLock) Release() {}
