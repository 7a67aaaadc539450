// SPDX-License-Identifier: MPL-2.0

package launchargs

import (
	"fmt"

	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

// DefaultLauncherName is substituted for ${launcher_name} when Settings
// leaves it empty.
const DefaultLauncherName = "kiln"

// Settings are the user and environment inputs of Build. Every field is
// read as given; Build never consults the environment.
type Settings struct {
	Layout   gameinfo.Layout
	Platform platform.Platform

	// GameDir is the working directory of the game. Default: Layout.Root.
	GameDir string
	// NativesDir defaults to Layout.NativesDir(<version id>).
	NativesDir string

	// MinMemoryMB and MaxMemoryMB become -Xms/-Xmx when positive.
	MinMemoryMB int
	MaxMemoryMB int
	// JVMArgs are extra JVM flags in shell syntax, placed after the memory flags.
	JVMArgs string
	// GameArgs are extra game arguments in shell syntax, placed last.
	GameArgs string

	Width      int
	Height     int
	Fullscreen bool
	Demo       bool

	LauncherName    string
	LauncherVersion string
	// VersionType overrides ${version_type}. Default: the descriptor type.
	VersionType string

	// Features overrides descriptor rule features.
	Features map[string]bool
}

func (s Settings) validate() error {
	switch {
	case s.Layout.Root == "":
		return gameinfo.NewConfigurationError("settings", "no game directory", nil)
	case s.MinMemoryMB < 0 || s.MaxMemoryMB < 0:
		return gameinfo.NewConfigurationError("settings", "memory sizes must not be negative", nil)
	case s.MaxMemoryMB > 0 && s.MinMemoryMB > s.MaxMemoryMB:
		return gameinfo.NewConfigurationError("settings",
			fmt.Sprintf("minimum memory %dMB exceeds maximum %dMB", s.MinMemoryMB, s.MaxMemoryMB), nil)
	case s.Width < 0 || s.Height < 0:
		return gameinfo.NewConfigurationError("settings", "resolution must not be negative", nil)
	}
	return nil
}

// features returns the rule features implied by the settings.
func (s Settings) features() map[string]bool {
	f := map[string]bool{
		"has_custom_resolution": s.Width > 0 && s.Height > 0,
		"is_demo_user":          s.Demo,
	}
	for k, v := range s.Features {
		f[k] = v
	}
	return f
}

func (s Settings) gameDir() string {
	if s.GameDir != "" {
		return s.GameDir
	}
	return s.Layout.Root
}

func (s Settings) launcherName() string {
	if s.LauncherName != "" {
		return s.LauncherName
	}
	return DefaultLauncherName
}
