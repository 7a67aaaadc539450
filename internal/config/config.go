// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/kilnlauncher/kiln/internal/issue"
	"github.com/kilnlauncher/kiln/pkg/cueutil"
	"github.com/kilnlauncher/kiln/pkg/platform"
	"github.com/kilnlauncher/kiln/pkg/types"
)

const (
	// AppName is the application name.
	AppName = "kiln"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: java.max_memory_mb is read
	// from KILN_JAVA_MAX_MEMORY_MB.
	EnvPrefix = "KILN"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the kiln configuration directory: %APPDATA%\kiln on
// Windows, ~/Library/Application Support/kiln on macOS and
// $XDG_CONFIG_HOME/kiln (default ~/.config/kiln) elsewhere.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case platform.Windows:
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// ConfigFilePath returns the path of config.cue inside ConfigDir.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// DefaultGameDir returns the platform's usual .minecraft location.
func DefaultGameDir() (string, error) {
	if runtime.GOOS == platform.Windows {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, ".minecraft"), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	switch runtime.GOOS {
	case platform.Windows:
		return filepath.Join(home, "AppData", "Roaming", ".minecraft"), nil
	case platform.Darwin:
		return filepath.Join(home, "Library", "Application Support", "minecraft"), nil
	default:
		return filepath.Join(home, ".minecraft"), nil
	}
}

// ResolveGameDir returns GameDir with "~" expanded, or DefaultGameDir when
// it is unset.
func (c *Config) ResolveGameDir() (string, error) {
	if c.GameDir == "" {
		return DefaultGameDir()
	}
	home, err := os.UserHomeDir()
	if err != nil && strings.HasPrefix(c.GameDir, "~") {
		return "", fmt.Errorf("expand game_dir: %w", err)
	}
	return types.FilesystemPath(c.GameDir).Expand(home)
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("game_dir", d.GameDir)
	v.SetDefault("java.path", d.Java.Path)
	v.SetDefault("java.min_memory_mb", d.Java.MinMemoryMB)
	v.SetDefault("java.max_memory_mb", d.Java.MaxMemoryMB)
	v.SetDefault("java.jvm_args", d.Java.JVMArgs)
	v.SetDefault("java.game_args", d.Java.GameArgs)
	v.SetDefault("download.concurrency", d.Download.Concurrency)
	v.SetDefault("download.attempts", d.Download.Attempts)
	v.SetDefault("download.timeout", d.Download.Timeout.String())
	v.SetDefault("download.user_agent", d.Download.UserAgent)
	v.SetDefault("mirrors", d.Mirrors)
	v.SetDefault("repositories.fabric_meta", d.Repositories.FabricMeta)
	v.SetDefault("repositories.quilt_meta", d.Repositories.QuiltMeta)
	v.SetDefault("repositories.forge", d.Repositories.Forge)
	v.SetDefault("repositories.neoforge", d.Repositories.NeoForge)
	v.SetDefault("repositories.optifine", d.Repositories.OptiFine)
	v.SetDefault("repositories.assets", d.Repositories.Assets)
	v.SetDefault("launch.output_lines", d.Launch.OutputLines)
	v.SetDefault("launch.crash_grace_period", d.Launch.CrashGracePeriod.String())
	v.SetDefault("launch.crash_signatures", d.Launch.CrashSignatures)
	v.SetDefault("launch.width", d.Launch.Width)
	v.SetDefault("launch.height", d.Launch.Height)
	v.SetDefault("launch.fullscreen", d.Launch.Fullscreen)
	v.SetDefault("launch.launcher_name", d.Launch.LauncherName)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("log.level", string(d.Log.Level))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions loads defaults, then the config file, then environment
// overrides, and validates the result.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := newViper()
	resolved := ""

	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return nil, "", loadError(path, fmt.Errorf("config file not found: %w", os.ErrNotExist),
				"Verify the path passed to --config",
				"Run 'kiln config init' to create the default file")
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err,
				"Check the file for CUE syntax errors",
				"Compare it with 'kiln config show --format cue'")
		}
		resolved = path
	} else {
		dir := string(opts.ConfigDirPath)
		if dir == "" {
			var err error
			if dir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}
		path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(path) {
			if err := loadCUEIntoViper(v, path); err != nil {
				return nil, "", loadError(path, err,
					"Check the file for CUE syntax errors",
					"Compare it with 'kiln config show --format cue'")
			}
			resolved = path
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, "", loadError(resolved, fmt.Errorf("decode config: %w", err),
			"Check the KILN_* environment variables for malformed values")
	}

	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolved).
			WithSuggestion("Fix the values listed above or remove them to use the defaults").
			Wrap(errors.Join(errs...)).
			BuildError()
	}
	return &cfg, resolved, nil
}

func loadError(path string, cause error, suggestions ...string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestions(suggestions...).
		Wrap(cause).
		BuildError()
}

// loadCUEIntoViper validates the file at path against #Config and merges
// the fields it sets over the viper defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any]([]byte(configSchema), data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path. An
// existing file is kept unless force is set. It reports whether it wrote.
func CreateDefaultConfig(path string, force bool) (bool, error) {
	if !force && fileExists(path) {
		return false, nil
	}
	if err := writeFile(path, []byte(GenerateCUE(DefaultConfig()))); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg as CUE to ConfigFilePath.
func Save(cfg *Config) error {
	path, err := ConfigFilePath()
	if err != nil {
		return err
	}
	return writeFile(path, []byte(GenerateCUE(cfg)))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExportTOML renders cfg as TOML, for tools that do not read CUE.
func ExportTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config as TOML: %w", err)
	}
	return out, nil
}

// GenerateCUE renders cfg in the config file format. Empty optional
// strings are left out.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// kiln configuration\n")
	sb.WriteString("// Environment variables named KILN_<SECTION>_<FIELD> override these values.\n\n")

	if cfg.GameDir != "" {
		fmt.Fprintf(&sb, "game_dir: %q\n\n", cfg.GameDir)
	}

	sb.WriteString("java: {\n")
	optString(&sb, "\t", "path", cfg.Java.Path)
	fmt.Fprintf(&sb, "\tmin_memory_mb: %d\n", cfg.Java.MinMemoryMB)
	fmt.Fprintf(&sb, "\tmax_memory_mb: %d\n", cfg.Java.MaxMemoryMB)
	optString(&sb, "\t", "jvm_args", cfg.Java.JVMArgs)
	optString(&sb, "\t", "game_args", cfg.Java.GameArgs)
	sb.WriteString("}\n")

	sb.WriteString("\ndownload: {\n")
	fmt.Fprintf(&sb, "\tconcurrency: %d\n", cfg.Download.Concurrency)
	fmt.Fprintf(&sb, "\tattempts:    %d\n", cfg.Download.Attempts)
	fmt.Fprintf(&sb, "\ttimeout:     %q\n", cfg.Download.Timeout.String())
	optString(&sb, "\t", "user_agent", cfg.Download.UserAgent)
	sb.WriteString("}\n")

	if len(cfg.Mirrors) > 0 {
		sb.WriteString("\nmirrors: [\n")
		for _, m := range cfg.Mirrors {
			fmt.Fprintf(&sb, "\t{prefix: %q, url: %q},\n", m.Prefix, m.URL)
		}
		sb.WriteString("]\n")
	}

	r := cfg.Repositories
	if r != (RepositoriesConfig{}) {
		sb.WriteString("\nrepositories: {\n")
		optString(&sb, "\t", "fabric_meta", r.FabricMeta)
		optString(&sb, "\t", "quilt_meta", r.QuiltMeta)
		optString(&sb, "\t", "forge", r.Forge)
		optString(&sb, "\t", "neoforge", r.NeoForge)
		optString(&sb, "\t", "optifine", r.OptiFine)
		optString(&sb, "\t", "assets", r.Assets)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nlaunch: {\n")
	fmt.Fprintf(&sb, "\toutput_lines:       %d\n", cfg.Launch.OutputLines)
	fmt.Fprintf(&sb, "\tcrash_grace_period: %q\n", cfg.Launch.CrashGracePeriod.String())
	if len(cfg.Launch.CrashSignatures) > 0 {
		sb.WriteString("\tcrash_signatures: [\n")
		for _, s := range cfg.Launch.CrashSignatures {
			fmt.Fprintf(&sb, "\t\t{name: %q, pattern: %q},\n", s.Name, s.Pattern)
		}
		sb.WriteString("\t]\n")
	}
	fmt.Fprintf(&sb, "\twidth:      %d\n", cfg.Launch.Width)
	fmt.Fprintf(&sb, "\theight:     %d\n", cfg.Launch.Height)
	fmt.Fprintf(&sb, "\tfullscreen: %v\n", cfg.Launch.Fullscreen)
	optString(&sb, "\t", "launcher_name", cfg.Launch.LauncherName)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

func optString(sb *strings.Builder, indent, key, value string) {
	if value != "" {
		fmt.Fprintf(sb, "%s%s: %q\n", indent, key, value)
	}
}
