// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"runtime"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Descriptor OS names as used by version rules and natives classifiers.
const (
	RuleWindows = "windows"
	RuleOSX     = "osx"
	RuleLinux   = "linux"
)

// Platform identifies an operating system and CPU architecture pair.
type Platform struct {
	// OS is a runtime.GOOS value.
	OS string
	// Arch is a runtime.GOARCH value.
	Arch string
	// Version is the OS version string matched by "os.version" rules. Optional.
	Version string
}

// Current returns the platform the binary is running on.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// RuleName returns the OS name used by descriptor rules.
func (p Platform) RuleName() string {
	switch p.OS {
	case Windows:
		return RuleWindows
	case Darwin:
		return RuleOSX
	default:
		return RuleLinux
	}
}

// RuleArch returns the architecture name used by descriptor rules.
func (p Platform) RuleArch() string {
	switch p.Arch {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	default:
		return p.Arch
	}
}

// Bits returns "32" or "64", substituted for ${arch} in natives classifiers.
func (p Platform) Bits() string {
	switch p.Arch {
	case "386", "arm":
		return "32"
	default:
		return "64"
	}
}

// ClasspathSeparator returns the JVM classpath separator for the platform.
func (p Platform) ClasspathSeparator() string {
	if p.OS == Windows {
		return ";"
	}
	return ":"
}

// JavaExecutable returns the conventional name of the java launcher binary.
func (p Platform) JavaExecutable() string {
	if p.OS == Windows {
		return "javaw.exe"
	}
	return "java"
}

// String returns "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// WindowsReservedNames are filenames that cannot be used on Windows.
// These names are reserved by the operating system regardless of file extension.
var WindowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName checks if a filename is a Windows reserved name.
// Version IDs become directory names, so they are checked against this list
// on every platform.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.LastIndex(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return WindowsReservedNames[upper]
}
