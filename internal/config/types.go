// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark palette.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light palette.
	ColorSchemeLight ColorScheme = "light"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidColorScheme is wrapped by InvalidColorSchemeError.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidMirror is wrapped by InvalidMirrorError.
	ErrInvalidMirror = errors.New("invalid mirror")
	// ErrInvalidJavaConfig is wrapped by InvalidJavaConfigError.
	ErrInvalidJavaConfig = errors.New("invalid java config")
	// ErrInvalidDownloadConfig is wrapped by InvalidDownloadConfigError.
	ErrInvalidDownloadConfig = errors.New("invalid download config")
	// ErrInvalidLaunchConfig is wrapped by InvalidLaunchConfigError.
	ErrInvalidLaunchConfig = errors.New("invalid launch config")
	// ErrInvalidConfig is wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme selects the terminal palette.
	ColorScheme string

	// InvalidColorSchemeError wraps ErrInvalidColorScheme.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError wraps ErrInvalidLogLevel.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Duration is a time.Duration written as text ("90s", "2m") in config
	// files and environment variables.
	Duration time.Duration

	// Config holds the launcher configuration.
	Config struct {
		// GameDir is the .minecraft root. Default: the platform location.
		GameDir      string             `json:"game_dir" mapstructure:"game_dir" toml:"game_dir"`
		Java         JavaConfig         `json:"java" mapstructure:"java" toml:"java"`
		Download     DownloadConfig     `json:"download" mapstructure:"download" toml:"download"`
		Mirrors      []Mirror           `json:"mirrors" mapstructure:"mirrors" toml:"mirrors"`
		Repositories RepositoriesConfig `json:"repositories" mapstructure:"repositories" toml:"repositories"`
		Launch       LaunchConfig       `json:"launch" mapstructure:"launch" toml:"launch"`
		UI           UIConfig           `json:"ui" mapstructure:"ui" toml:"ui"`
		Log          LogConfig          `json:"log" mapstructure:"log" toml:"log"`
	}

	// JavaConfig selects the runtime and its flags.
	JavaConfig struct {
		// Path of the java executable. Empty means "java" on PATH.
		Path        string `json:"path" mapstructure:"path" toml:"path"`
		MinMemoryMB int    `json:"min_memory_mb" mapstructure:"min_memory_mb" toml:"min_memory_mb"`
		MaxMemoryMB int    `json:"max_memory_mb" mapstructure:"max_memory_mb" toml:"max_memory_mb"`
		// JVMArgs and GameArgs use shell quoting.
		JVMArgs  string `json:"jvm_args" mapstructure:"jvm_args" toml:"jvm_args"`
		GameArgs string `json:"game_args" mapstructure:"game_args" toml:"game_args"`
	}

	// DownloadConfig tunes the download manager.
	DownloadConfig struct {
		Concurrency int `json:"concurrency" mapstructure:"concurrency" toml:"concurrency"`
		Attempts    int `json:"attempts" mapstructure:"attempts" toml:"attempts"`
		// Timeout bounds one attempt of one file.
		Timeout   Duration `json:"timeout" mapstructure:"timeout" toml:"timeout"`
		UserAgent string   `json:"user_agent" mapstructure:"user_agent" toml:"user_agent"`
	}

	// Mirror serves URLs starting with Prefix from the blob bucket at URL.
	Mirror struct {
		Prefix string `json:"prefix" mapstructure:"prefix" toml:"prefix"`
		URL    string `json:"url" mapstructure:"url" toml:"url"`
	}

	// InvalidMirrorError wraps ErrInvalidMirror.
	InvalidMirrorError struct {
		Index  int
		Reason string
	}

	// RepositoriesConfig overrides loader metadata services and Maven
	// repositories. Empty fields keep the built-in endpoints.
	RepositoriesConfig struct {
		FabricMeta string `json:"fabric_meta" mapstructure:"fabric_meta" toml:"fabric_meta"`
		QuiltMeta  string `json:"quilt_meta" mapstructure:"quilt_meta" toml:"quilt_meta"`
		Forge      string `json:"forge" mapstructure:"forge" toml:"forge"`
		NeoForge   string `json:"neoforge" mapstructure:"neoforge" toml:"neoforge"`
		OptiFine   string `json:"optifine" mapstructure:"optifine" toml:"optifine"`
		Assets     string `json:"assets" mapstructure:"assets" toml:"assets"`
	}

	// LaunchConfig configures the game window and the process monitor.
	LaunchConfig struct {
		OutputLines      int              `json:"output_lines" mapstructure:"output_lines" toml:"output_lines"`
		CrashGracePeriod Duration         `json:"crash_grace_period" mapstructure:"crash_grace_period" toml:"crash_grace_period"`
		CrashSignatures  []CrashSignature `json:"crash_signatures" mapstructure:"crash_signatures" toml:"crash_signatures"`
		Width            int              `json:"width" mapstructure:"width" toml:"width"`
		Height           int              `json:"height" mapstructure:"height" toml:"height"`
		Fullscreen       bool             `json:"fullscreen" mapstructure:"fullscreen" toml:"fullscreen"`
		LauncherName     string           `json:"launcher_name" mapstructure:"launcher_name" toml:"launcher_name"`
	}

	// CrashSignature is an extra output pattern that marks a crash.
	CrashSignature struct {
		Name    string `json:"name" mapstructure:"name" toml:"name"`
		Pattern string `json:"pattern" mapstructure:"pattern" toml:"pattern"`
	}

	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}

	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level" toml:"level"`
	}

	// InvalidJavaConfigError wraps ErrInvalidJavaConfig.
	InvalidJavaConfigError struct {
		FieldErrors []error
	}

	// InvalidDownloadConfigError wraps ErrInvalidDownloadConfig.
	InvalidDownloadConfigError struct {
		FieldErrors []error
	}

	// InvalidLaunchConfigError wraps ErrInvalidLaunchConfig.
	InvalidLaunchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError wraps ErrInvalidConfig and collects the errors of
	// every section.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

func (cs ColorScheme) String() string { return string(cs) }

// IsValid reports whether cs is auto, dark or light.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (l LogLevel) String() string { return string(l) }

func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText writes the duration in time.Duration notation.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts time.ParseDuration syntax.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// IsValid checks that the prefix is an http(s) URL and that the bucket URL
// has a scheme.
func (m Mirror) IsValid() (bool, []error) {
	var errs []error
	if u, err := url.Parse(m.Prefix); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("prefix %q is not an http(s) URL", m.Prefix))
	}
	if u, err := url.Parse(m.URL); err != nil || u.Scheme == "" {
		errs = append(errs, fmt.Errorf("bucket URL %q has no scheme", m.URL))
	}
	return len(errs) == 0, errs
}

func (e *InvalidMirrorError) Error() string {
	return fmt.Sprintf("mirrors[%d]: %s", e.Index, e.Reason)
}

func (e *InvalidMirrorError) Unwrap() error { return ErrInvalidMirror }

func (c JavaConfig) IsValid() (bool, []error) {
	var errs []error
	if c.MinMemoryMB < 0 || c.MaxMemoryMB < 0 {
		errs = append(errs, errors.New("memory sizes must not be negative"))
	}
	if c.MaxMemoryMB > 0 && c.MinMemoryMB > c.MaxMemoryMB {
		errs = append(errs, fmt.Errorf("min_memory_mb %d exceeds max_memory_mb %d", c.MinMemoryMB, c.MaxMemoryMB))
	}
	if c.Path != "" && strings.TrimSpace(c.Path) == "" {
		errs = append(errs, errors.New("path must not be whitespace"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidJavaConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidJavaConfigError) Error() string {
	return fmt.Sprintf("invalid java config: %s", errors.Join(e.FieldErrors...))
}

func (e *InvalidJavaConfigError) Unwrap() error { return ErrInvalidJavaConfig }

func (c DownloadConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency %d must be positive", c.Concurrency))
	}
	if c.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("attempts %d must be positive", c.Attempts))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s must not be negative", c.Timeout))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDownloadConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidDownloadConfigError) Error() string {
	return fmt.Sprintf("invalid download config: %s", errors.Join(e.FieldErrors...))
}

func (e *InvalidDownloadConfigError) Unwrap() error { return ErrInvalidDownloadConfig }

// IsValid also compiles every crash signature pattern.
func (c LaunchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.OutputLines <= 0 {
		errs = append(errs, fmt.Errorf("output_lines %d must be positive", c.OutputLines))
	}
	if c.CrashGracePeriod < 0 {
		errs = append(errs, fmt.Errorf("crash_grace_period %s must not be negative", c.CrashGracePeriod))
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, errors.New("resolution must not be negative"))
	}
	for i, sig := range c.CrashSignatures {
		if strings.TrimSpace(sig.Name) == "" {
			errs = append(errs, fmt.Errorf("crash_signatures[%d]: empty name", i))
		}
		if _, err := regexp.Compile(sig.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("crash_signatures[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidLaunchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidLaunchConfigError) Error() string {
	return fmt.Sprintf("invalid launch config: %s", errors.Join(e.FieldErrors...))
}

func (e *InvalidLaunchConfigError) Unwrap() error { return ErrInvalidLaunchConfig }

func (c UIConfig) IsValid() (bool, []error) { return c.ColorScheme.IsValid() }

// IsValid delegates to every section.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	collect := func(ok bool, fieldErrs []error) {
		if !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	collect(c.Java.IsValid())
	collect(c.Download.IsValid())
	for i, m := range c.Mirrors {
		if ok, mErrs := m.IsValid(); !ok {
			errs = append(errs, &InvalidMirrorError{Index: i, Reason: errors.Join(mErrs...).Error()})
		}
	}
	collect(c.Launch.IsValid())
	collect(c.UI.IsValid())
	collect(c.Log.Level.IsValid())
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field errors", len(e.FieldErrors))
}

// Unwrap exposes ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the built-in configuration. GameDir stays empty
// and is resolved by DefaultGameDir at use.
func DefaultConfig() *Config {
	return &Config{
		Java: JavaConfig{
			MinMemoryMB: 512,
			MaxMemoryMB: 2048,
		},
		Download: DownloadConfig{
			Concurrency: 512,
			Attempts:    3,
			Timeout:     Duration(2 * time.Minute),
			UserAgent:   "kiln",
		},
		Mirrors: []Mirror{},
		Launch: LaunchConfig{
			OutputLines:      500,
			CrashGracePeriod: Duration(10 * time.Second),
			CrashSignatures:  []CrashSignature{},
			LauncherName:     "kiln",
		},
		UI: UIConfig{ColorScheme: ColorSchemeAuto},
		Log: LogConfig{Level: LogLevelInfo},
	}
}
