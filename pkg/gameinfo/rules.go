// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"regexp"

	"github.com/kilnlauncher/kiln/pkg/platform"
)

const (
	// ActionAllow enables the entry when the rule matches.
	ActionAllow = "allow"
	// ActionDisallow disables the entry when the rule matches.
	ActionDisallow = "disallow"
)

type (
	// Rule gates a library or argument on the host platform and launcher features.
	Rule struct {
		Action   string          `json:"action"`
		OS       *OSRule         `json:"os,omitempty"`
		Features map[string]bool `json:"features,omitempty"`
	}

	// OSRule matches the operating system. Version is a regular expression.
	OSRule struct {
		Name    string `json:"name,omitempty"`
		Arch    string `json:"arch,omitempty"`
		Version string `json:"version,omitempty"`
	}

	// Rules is an ordered rule list; the last matching rule wins.
	Rules []Rule
)

// Allows evaluates the rule list. An empty list allows everything; otherwise
// the entry starts disallowed and each matching rule sets the outcome.
// Features absent from the map count as false.
func (rs Rules) Allows(p platform.Platform, features map[string]bool) bool {
	if len(rs) == 0 {
		return true
	}

	allowed := false
	for _, r := range rs {
		if r.matches(p, features) {
			allowed = r.Action == ActionAllow
		}
	}
	return allowed
}

func (r Rule) matches(p platform.Platform, features map[string]bool) bool {
	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != p.RuleName() {
			return false
		}
		if r.OS.Arch != "" && r.OS.Arch != p.RuleArch() {
			return false
		}
		if r.OS.Version != "" {
			re, err := regexp.Compile(r.OS.Version)
			if err != nil || !re.MatchString(p.Version) {
				return false
			}
		}
	}
	for name, want := range r.Features {
		if features[name] != want {
			return false
		}
	}
	return true
}
