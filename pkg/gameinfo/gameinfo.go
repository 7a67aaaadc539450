// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilnlauncher/kiln/pkg/platform"
)

// ClientDownload is the key of the client jar in GameInfo.Downloads.
const ClientDownload = "client"

type (
	// GameInfo is a parsed version descriptor. It is read-only to the core;
	// installers produce a new GameInfo whose Parent is the input.
	GameInfo struct {
		ID                 string              `json:"id"`
		InheritsFrom       string              `json:"inheritsFrom,omitempty"`
		Type               string              `json:"type,omitempty"`
		Time               string              `json:"time,omitempty"`
		ReleaseTime        string              `json:"releaseTime,omitempty"`
		MainClass          string              `json:"mainClass,omitempty"`
		MinecraftArguments string              `json:"minecraftArguments,omitempty"`
		Arguments          *Arguments          `json:"arguments,omitempty"`
		Libraries          []Library           `json:"libraries,omitempty"`
		AssetIndex         *AssetIndex         `json:"assetIndex,omitempty"`
		Assets             string              `json:"assets,omitempty"`
		Downloads          map[string]Artifact `json:"downloads,omitempty"`
		JavaVersion        *JavaVersion        `json:"javaVersion,omitempty"`
		// Jar names the version whose jar is the game client. Empty means the
		// root of the inheritance chain.
		Jar string `json:"jar,omitempty"`

		// Parent is the resolved InheritsFrom descriptor. Set by Load.
		Parent *GameInfo `json:"-"`
	}

	// Arguments holds the structured argument lists of modern descriptors.
	Arguments struct {
		Game []Argument `json:"game,omitempty"`
		JVM  []Argument `json:"jvm,omitempty"`
	}

	// Argument is one argument entry: either a plain string or a set of
	// values gated by rules.
	Argument struct {
		Values []string
		Rules  Rules
	}

	// AssetIndex references the asset index document of a version.
	AssetIndex struct {
		ID        string `json:"id"`
		SHA1      string `json:"sha1,omitempty"`
		Size      int64  `json:"size,omitempty"`
		TotalSize int64  `json:"totalSize,omitempty"`
		URL       string `json:"url,omitempty"`
	}

	// Artifact is a downloadable file. Path is relative to the directory the
	// artifact kind lives in (libraries/ for library artifacts).
	Artifact struct {
		Path string `json:"path,omitempty"`
		URL  string `json:"url,omitempty"`
		SHA1 string `json:"sha1,omitempty"`
		Size int64  `json:"size,omitempty"`
	}

	// JavaVersion is the runtime major version a descriptor asks for.
	JavaVersion struct {
		Component    string `json:"component,omitempty"`
		MajorVersion int    `json:"majorVersion,omitempty"`
	}

	argumentObject struct {
		Rules Rules           `json:"rules,omitempty"`
		Value json.RawMessage `json:"value"`
	}
)

// UnmarshalJSON accepts "value" or {"rules": [...], "value": "v" | ["v", ...]}.
func (a *Argument) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Argument{Values: []string{s}}
		return nil
	}

	var obj argumentObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("argument: %w", err)
	}

	var values []string
	if err := json.Unmarshal(obj.Value, &s); err == nil {
		values = []string{s}
	} else if err := json.Unmarshal(obj.Value, &values); err != nil {
		return fmt.Errorf("argument value: %w", err)
	}

	*a = Argument{Values: values, Rules: obj.Rules}
	return nil
}

// MarshalJSON writes plain arguments back as strings.
func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	value, err := json.Marshal(a.Values)
	if err != nil {
		return nil, err
	}
	return json.Marshal(argumentObject{Rules: a.Rules, Value: value})
}

// PlainArguments wraps literal values as unconditional arguments.
func PlainArguments(values ...string) []Argument {
	args := make([]Argument, len(values))
	for i, v := range values {
		args[i] = Argument{Values: []string{v}}
	}
	return args
}

// Client returns the client jar download, if the descriptor declares one.
func (g *GameInfo) Client() (Artifact, bool) {
	a, ok := g.Downloads[ClientDownload]
	return a, ok
}

// AssetsID returns the asset index ID, falling back to the legacy "assets"
// field and then to "legacy".
func (g *GameInfo) AssetsID() string {
	if g.AssetIndex != nil && g.AssetIndex.ID != "" {
		return g.AssetIndex.ID
	}
	if g.Assets != "" {
		return g.Assets
	}
	return "legacy"
}

// Root returns the first descriptor of the inheritance chain.
func (g *GameInfo) Root() *GameInfo {
	root := g
	seen := map[*GameInfo]bool{}
	for root.Parent != nil && !seen[root] {
		seen[root] = true
		root = root.Parent
	}
	return root
}

// ValidateID returns an error if id cannot be used as a version directory name.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidVersionID)
	case strings.ContainsAny(id, `/\:*?"<>|`):
		return fmt.Errorf("%w: %q contains a path separator or reserved character", ErrInvalidVersionID, id)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidVersionID, id)
	case platform.IsWindowsReservedName(id):
		return fmt.Errorf("%w: %q is a reserved file name", ErrInvalidVersionID, id)
	}
	return nil
}
