// SPDX-License-Identifier: MPL-2.0

package install

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kilnlauncher/kiln/pkg/platform"
)

type (
	// Invocation describes one patch processor run on the JVM.
	Invocation struct {
		// Name identifies the processor in errors and logs.
		Name      string
		Classpath []string
		MainClass string
		Args      []string
		Dir       string
	}

	// Output is the captured result of an Invocation.
	Output struct {
		ExitCode int
		// Lines holds stdout and stderr interleaved, one entry per line.
		Lines []string
	}

	// Toolchain runs patch processors. Run returns an error only when the
	// process could not be run at all; a non-zero exit is reported in Output.
	Toolchain interface {
		Run(ctx context.Context, inv Invocation) (Output, error)
	}

	// JavaToolchain runs processors with a local java executable.
	JavaToolchain struct {
		// Java is the java executable. Default: "java" from PATH.
		Java     string
		Platform platform.Platform
	}
)

// Run executes `java -cp <classpath> <main> <args...>` and captures its output.
func (j JavaToolchain) Run(ctx context.Context, inv Invocation) (Output, error) {
	java := j.Java
	if java == "" {
		java = "java"
	}
	p := j.Platform
	if p.OS == "" {
		p = platform.Current()
	}

	args := make([]string, 0, len(inv.Args)+3)
	if len(inv.Classpath) > 0 {
		args = append(args, "-cp", strings.Join(inv.Classpath, p.ClasspathSeparator()))
	}
	args = append(args, inv.MainClass)
	args = append(args, inv.Args...)

	cmd := exec.CommandContext(ctx, java, args...)
	cmd.Dir = inv.Dir

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	out := Output{Lines: splitLines(combined.Bytes())}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("run %s: %w", inv.Name, err)
	}
	return out, nil
}

func splitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}

// compile runs inv and converts a non-zero exit into *LoaderCompileError.
func compile(ctx context.Context, tc Toolchain, inv Invocation) error {
	out, err := tc.Run(ctx, inv)
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return &LoaderCompileError{Processor: inv.Name, ExitCode: out.ExitCode, Diagnostics: out.Lines}
	}
	return nil
}
