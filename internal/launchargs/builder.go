// SPDX-License-Identifier: MPL-2.0

// Package launchargs builds the JVM command line of a game version.
//
// Build is pure: equal inputs yield identical output, and it performs no
// I/O. Missing or inconsistent descriptor data is a
// *gameinfo.ConfigurationError; nothing is emitted partially.
package launchargs

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

var placeholder = regexp.MustCompile(`\$\{([a-zA-Z0-9_.]+)\}`)

// Build returns the arguments that follow the java executable:
// memory flags, user JVM flags, descriptor JVM flags, main class, then game
// arguments.
func Build(g *gameinfo.GameInfo, acct gameinfo.Account, s Settings) ([]string, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := acct.Validate(); err != nil {
		return nil, gameinfo.NewConfigurationError("account", "account cannot launch", err)
	}

	flat, err := gameinfo.Flatten(g)
	if err != nil {
		return nil, err
	}
	if flat.MainClass == "" {
		return nil, gameinfo.NewConfigurationError(flat.ID, "no main class", nil)
	}
	if _, ok := flat.Client(); !ok {
		return nil, gameinfo.NewConfigurationError(flat.ID, "no client jar in the inheritance chain", nil)
	}

	features := s.features()
	cp, err := classpath(flat, s, features)
	if err != nil {
		return nil, err
	}
	vars := variables(flat, acct, s, cp)

	userJVM, err := splitShell("jvm arguments", s.JVMArgs)
	if err != nil {
		return nil, err
	}
	userGame, err := splitShell("game arguments", s.GameArgs)
	if err != nil {
		return nil, err
	}

	var args []string
	if s.MinMemoryMB > 0 {
		args = append(args, "-Xms"+strconv.Itoa(s.MinMemoryMB)+"m")
	}
	if s.MaxMemoryMB > 0 {
		args = append(args, "-Xmx"+strconv.Itoa(s.MaxMemoryMB)+"m")
	}
	args = append(args, userJVM...)

	if flat.Arguments != nil && len(flat.Arguments.JVM) > 0 {
		args = appendArguments(args, flat.Arguments.JVM, s, features, vars)
	} else {
		args = append(args,
			expand("-Djava.library.path=${natives_directory}", vars),
			expand("-Dminecraft.launcher.brand=${launcher_name}", vars),
			expand("-Dminecraft.launcher.version=${launcher_version}", vars),
			"-cp", cp,
		)
	}

	args = append(args, flat.MainClass)

	if flat.Arguments != nil && len(flat.Arguments.Game) > 0 {
		args = appendArguments(args, flat.Arguments.Game, s, features, vars)
	}
	if flat.MinecraftArguments != "" && (flat.Arguments == nil || len(flat.Arguments.Game) == 0) {
		for _, field := range strings.Fields(flat.MinecraftArguments) {
			args = append(args, expand(field, vars))
		}
		if features["has_custom_resolution"] {
			args = append(args, "--width", vars["resolution_width"], "--height", vars["resolution_height"])
		}
	}
	if s.Fullscreen {
		args = append(args, "--fullscreen")
	}
	args = append(args, userGame...)
	return args, nil
}

// classpath lists the allowed library artifacts in descriptor order and
// then the client jar, without duplicates.
func classpath(flat *gameinfo.GameInfo, s Settings, features map[string]bool) (string, error) {
	var entries []string
	seen := map[string]bool{}
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			entries = append(entries, path)
		}
	}

	for _, lib := range flat.Libraries {
		if !lib.Rules.Allows(s.Platform, features) {
			continue
		}
		a, ok, err := lib.Artifact()
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if a.Path == "" {
			return "", gameinfo.NewConfigurationError(lib.Name, "library has no artifact path", nil)
		}
		add(s.Layout.LibraryPath(a.Path))
	}
	add(s.Layout.ClientJarPath(flat.Jar))
	return strings.Join(entries, s.Platform.ClasspathSeparator()), nil
}

func variables(flat *gameinfo.GameInfo, acct gameinfo.Account, s Settings, cp string) map[string]string {
	nativesDir := s.NativesDir
	if nativesDir == "" {
		nativesDir = s.Layout.NativesDir(flat.ID)
	}
	versionType := s.VersionType
	if versionType == "" {
		versionType = flat.Type
	}
	assetsID := flat.AssetsID()

	return map[string]string{
		"auth_player_name":    acct.Name,
		"auth_uuid":           acct.UUID,
		"auth_access_token":   acct.AccessToken,
		"auth_session":        acct.AccessToken,
		"auth_xuid":           acct.XUID,
		"clientid":            acct.ClientToken,
		"user_type":           acct.UserType(),
		"user_properties":     "{}",
		"version_name":        flat.ID,
		"version_type":        versionType,
		"game_directory":      s.gameDir(),
		"assets_root":         s.Layout.AssetsDir(),
		"game_assets":         filepath.Join(s.Layout.AssetsDir(), "virtual", assetsID),
		"assets_index_name":   assetsID,
		"natives_directory":   nativesDir,
		"library_directory":   s.Layout.LibrariesDir(),
		"classpath":           cp,
		"classpath_separator": s.Platform.ClasspathSeparator(),
		"launcher_name":       s.launcherName(),
		"launcher_version":    s.LauncherVersion,
		"resolution_width":    strconv.Itoa(s.Width),
		"resolution_height":   strconv.Itoa(s.Height),
	}
}

func appendArguments(args []string, list []gameinfo.Argument, s Settings, features map[string]bool, vars map[string]string) []string {
	for _, a := range list {
		if !a.Rules.Allows(s.Platform, features) {
			continue
		}
		for _, v := range a.Values {
			args = append(args, expand(v, vars))
		}
	}
	return args
}

// expand replaces ${name} placeholders. Unknown names are left as written.
func expand(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// splitShell splits user-supplied arguments with shell quoting rules. Variable
// references expand to nothing so the result never depends on the environment.
func splitShell(what, s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return nil, gameinfo.NewConfigurationError("settings", "malformed "+what, err)
	}
	return fields, nil
}
