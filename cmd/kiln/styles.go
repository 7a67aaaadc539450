// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output. The colors read well on dark
// terminal backgrounds.
const (
	// ColorPrimary is ember orange, for titles and the launcher name.
	ColorPrimary = lipgloss.Color("#EA580C")

	// ColorMuted is gray, for descriptions, paths and secondary text.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, for finished downloads, installs and clean exits.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, for failed launches and error headers.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, for non-zero game exits and skipped actions.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, for version IDs and configuration keys.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// Base styles built from the palette. Commands extend them with margins or
// padding where needed.
var (
	// TitleStyle is for primary headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for descriptions and placeholders.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for the check marks of fetch, install and config init.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error headers in rendered service errors.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for game exit codes and refused overwrites.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// KeyStyle is for configuration keys and version IDs.
	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)
