// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/kilnlauncher/kiln/internal/app/launcher"
	"github.com/kilnlauncher/kiln/internal/dag"
	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/install"
	"github.com/kilnlauncher/kiln/internal/issue"
	"github.com/kilnlauncher/kiln/internal/launch"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

// ServiceError is an error the CLI renders itself: a styled message and,
// when IssueID is set, the matching guidance document.
// Create it through newServiceError.
type ServiceError struct {
	Err           error
	IssueID       issue.Id
	StyledMessage string
}

func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, StyledMessage: styledMessage}
}

func (e *ServiceError) Error() string { return e.Err.Error() }

func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a failure to its issue catalog entry, or 0 when none
// applies, and formats it for the terminal.
func classifyError(err error, verbose bool) (issue.Id, string) {
	var (
		id         issue.Id
		ae         *issue.ActionableError
		cycle      *dag.CycleError
		incomplete *download.IncompleteResourcesError
		running    *launch.AlreadyRunningError
	)

	switch {
	case errors.As(err, &ae) && (ae.Operation == "load configuration" || ae.Operation == "validate configuration"):
		id = issue.ConfigLoadFailedId
	case errors.Is(err, gameinfo.ErrBrokenChain), errors.As(err, &cycle):
		id = issue.BrokenInheritanceId
	case errors.Is(err, launch.ErrMissingRuntime):
		id = issue.JavaNotFoundId
	case errors.Is(err, launch.ErrPreflight):
		id = issue.PreflightFailedId
	case errors.Is(err, launcher.ErrGameCrashed):
		id = issue.GameCrashedId
	case errors.Is(err, install.ErrLoaderCompile):
		id = issue.LoaderCompileFailedId
	case errors.Is(err, install.ErrMalformedInstaller):
		id = issue.LoaderMetadataId
	case errors.Is(err, install.ErrAlreadyRunning), errors.As(err, &running):
		id = issue.AlreadyRunningId
	case errors.Is(err, download.ErrChecksumMismatch), errors.Is(err, download.ErrSizeMismatch):
		id = issue.ChecksumMismatchId
	case errors.As(err, &incomplete):
		id = issue.ResourcesIncompleteId
		if slices.ContainsFunc(incomplete.Failed, func(r download.Result) bool { return r.Kind == download.KindIntegrity }) {
			id = issue.ChecksumMismatchId
		}
	case errors.Is(err, os.ErrPermission):
		id = issue.PermissionDeniedId
	case errors.Is(err, fs.ErrNotExist):
		id = issue.VersionNotFoundId
	}

	return id, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// formatErrorForDisplay uses the ActionableError layout when err has one.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderServiceError prints the styled message, then the issue document
// rendered with glamour in style.
func renderServiceError(w io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil {
		return
	}
	if svcErr.StyledMessage != "" {
		fmt.Fprint(w, svcErr.StyledMessage)
	}
	if svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(style)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issue", svcErr.IssueID, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}
