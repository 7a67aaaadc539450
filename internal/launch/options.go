// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"log/slog"
	"time"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for run times and the crash grace period.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSignatures replaces the crash signatures. An empty list disables
// signature detection.
func WithSignatures(sigs []Signature) Option {
	return func(c *Controller) {
		c.signatures = sigs
	}
}

// WithOutputLines sets how many recent output lines are kept for CrashData.
func WithOutputLines(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.ringSize = n
		}
	}
}

// WithCrashGracePeriod sets how long a crashed process may keep running
// before it is killed.
func WithCrashGracePeriod(d time.Duration) Option {
	return func(c *Controller) {
		c.grace = d
	}
}

// WithOutputDrainDelay sets how long output is still read once the game
// process has exited. Processes it spawned may hold stdout open; after the
// delay the pipes are closed and the session finishes anyway.
func WithOutputDrainDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.drain = d
		}
	}
}
