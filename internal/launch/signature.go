// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"fmt"
	"regexp"
	"slices"
)

type (
	// Signature recognizes a crash from a single output line.
	Signature struct {
		Name    string
		Pattern *regexp.Regexp
	}

	// CrashData is attached to the transition into StateCrashed.
	CrashData struct {
		// Signature names the signature that matched.
		Signature string
		// Line is the matching output line.
		Line string
		// Lines are the most recent output lines, oldest first, ending with Line.
		Lines []string
	}
)

var defaultSignatures = []Signature{
	{Name: "crash-report", Pattern: regexp.MustCompile(`^---- Minecraft Crash Report ----`)},
	{Name: "crash-report-saved", Pattern: regexp.MustCompile(`#@!@# Game crashed! Crash report saved to:`)},
	{Name: "jvm-fatal-error", Pattern: regexp.MustCompile(`A fatal error has been detected by the Java Runtime Environment`)},
	{Name: "main-thread-exception", Pattern: regexp.MustCompile(`^Exception in thread "main"`)},
	{Name: "out-of-memory", Pattern: regexp.MustCompile(`java\.lang\.OutOfMemoryError`)},
	{Name: "jvm-creation", Pattern: regexp.MustCompile(`Could not create the Java Virtual Machine`)},
	{Name: "main-class", Pattern: regexp.MustCompile(`Could not find or load main class`)},
	{Name: "lwjgl", Pattern: regexp.MustCompile(`org\.lwjgl\.LWJGLException|GLFW error 65542|Pixel format not accelerated`)},
}

// DefaultSignatures returns a copy of the built-in crash signatures.
func DefaultSignatures() []Signature {
	return slices.Clone(defaultSignatures)
}

// CompileSignatures builds signatures from name -> regular expression
// pairs, in the order given.
func CompileSignatures(pairs ...[2]string) ([]Signature, error) {
	out := make([]Signature, 0, len(pairs))
	for _, p := range pairs {
		re, err := regexp.Compile(p[1])
		if err != nil {
			return nil, fmt.Errorf("crash signature %s: %w", p[0], err)
		}
		out = append(out, Signature{Name: p[0], Pattern: re})
	}
	return out, nil
}

func matchSignature(sigs []Signature, line string) (string, bool) {
	for _, s := range sigs {
		if s.Pattern.MatchString(line) {
			return s.Name, true
		}
	}
	return "", false
}

// ring keeps the last n lines.
type ring struct {
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	return &ring{buf: make([]string, n)}
}

func (r *ring) add(line string) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.next] = line
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) lines() []string {
	if !r.full {
		return slices.Clone(r.buf[:r.next])
	}
	return append(slices.Clone(r.buf[r.next:]), r.buf[:r.next]...)
}
