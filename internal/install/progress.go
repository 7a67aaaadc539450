// SPDX-License-Identifier: MPL-2.0

package install

import (
	"math"
	"sync"

	"github.com/kilnlauncher/kiln/internal/notify"
)

const (
	// StepResolve fetches loader metadata and lists the artifacts to acquire.
	StepResolve Step = "resolve"
	// StepDownload acquires the artifacts.
	StepDownload Step = "download"
	// StepCompile runs local patch processors.
	StepCompile Step = "compile"
	// StepPersist writes the new version descriptor.
	StepPersist Step = "persist"
	// StepDone marks a successful run.
	StepDone Step = "done"
)

// Fraction boundaries of each step.
const (
	resolveEnd  = 0.1
	downloadEnd = 0.6
	compileEnd  = 0.9
)

type (
	// Step names a phase of an install run.
	Step string

	// Progress is one progress notification.
	Progress struct {
		Fraction float64
		Step     Step
	}

	// reporter publishes clamped, non-decreasing progress. Only finish
	// publishes 1.0.
	reporter struct {
		mu   sync.Mutex
		hub  *notify.Hub[Progress]
		last float64
	}
)

// ceiling is the largest fraction an unfinished run may report.
var ceiling = math.Nextafter(1, 0)

func (r *reporter) report(step Step, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fraction = min(max(fraction, r.last), ceiling)
	r.last = fraction
	r.hub.Publish(Progress{Fraction: fraction, Step: step})
}

// span reports fraction within [from, to] for done of total units.
func (r *reporter) span(step Step, from, to float64, done, total int) {
	if total <= 0 {
		r.report(step, to)
		return
	}
	r.report(step, from+(to-from)*float64(done)/float64(total))
}

func (r *reporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = 1
	r.hub.Publish(Progress{Fraction: 1, Step: StepDone})
}
