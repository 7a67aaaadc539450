// SPDX-License-Identifier: MPL-2.0

//go:build linux

package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Poll interval bounds while another holder keeps the flock.
const (
	lockPollMin = 10 * time.Millisecond
	lockPollMax = 250 * time.Millisecond
)

// errFlockUnavailable is defined for parity with lock_other.go; on Linux
// acquireInstallLock never returns it.
var errFlockUnavailable = errors.New("flock not available on this platform")

// installLock holds an exclusive flock serializing installs of one version
// ID across launcher processes. The kernel releases it if the process dies,
// so an orphaned lock file is harmless.
type installLock struct {
	file *os.File
}

// acquireInstallLock opens (or creates) path and polls a non-blocking
// exclusive flock until it is held or ctx is done.
func acquireInstallLock(ctx context.Context, path string) (*installLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	delay := lockPollMin
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &installLock{file: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = f.Close()
			return nil, fmt.Errorf("wait for install lock %s: %w", path, ctx.Err())
		case <-t.C:
		}
		delay = min(delay*2, lockPollMax)
	}
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *installLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
