// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"strings"

	"github.com/kilnlauncher/kiln/pkg/platform"
)

// DefaultLibraryRepository serves libraries that declare neither downloads nor a URL.
const DefaultLibraryRepository = "https://libraries.minecraft.net/"

type (
	// Library is a descriptor library entry.
	Library struct {
		Name      string            `json:"name"`
		URL       string            `json:"url,omitempty"`
		SHA1      string            `json:"sha1,omitempty"`
		Size      int64             `json:"size,omitempty"`
		Downloads *LibraryDownloads `json:"downloads,omitempty"`
		Natives   map[string]string `json:"natives,omitempty"`
		Extract   *ExtractRules     `json:"extract,omitempty"`
		Rules     Rules             `json:"rules,omitempty"`
	}

	// LibraryDownloads lists the main artifact and classifier artifacts.
	LibraryDownloads struct {
		Artifact    *Artifact           `json:"artifact,omitempty"`
		Classifiers map[string]Artifact `json:"classifiers,omitempty"`
	}

	// ExtractRules lists glob patterns excluded when extracting a natives jar.
	ExtractRules struct {
		Exclude []string `json:"exclude,omitempty"`
	}
)

// Coordinate parses the library name.
func (l Library) Coordinate() (Coordinate, error) {
	return ParseCoordinate(l.Name)
}

// Key returns the override key of the library, or its raw name when the
// name is not a valid coordinate.
func (l Library) Key() string {
	c, err := l.Coordinate()
	if err != nil {
		return l.Name
	}
	return c.Key()
}

// IsNative reports whether the library ships platform natives through a
// classifier instead of a classpath jar.
func (l Library) IsNative() bool {
	return len(l.Natives) > 0
}

// Artifact resolves the classpath artifact of the library. Libraries that
// only carry natives have none; ok is false for them.
func (l Library) Artifact() (a Artifact, ok bool, err error) {
	if l.Downloads != nil && l.Downloads.Artifact != nil {
		a = *l.Downloads.Artifact
		if a.Path == "" {
			c, err := l.Coordinate()
			if err != nil {
				return Artifact{}, false, NewConfigurationError(l.Name, "library has no artifact path", err)
			}
			a.Path = c.Path()
		}
		return a, true, nil
	}
	if l.IsNative() && l.Downloads != nil {
		return Artifact{}, false, nil
	}

	c, err := l.Coordinate()
	if err != nil {
		return Artifact{}, false, NewConfigurationError(l.Name, "library has no artifact path", err)
	}
	return Artifact{
		Path: c.Path(),
		URL:  repositoryURL(l.URL) + c.Path(),
		SHA1: l.SHA1,
		Size: l.Size,
	}, true, nil
}

// NativeClassifier returns the natives classifier for p, or "" when the
// library has no natives for that platform.
func (l Library) NativeClassifier(p platform.Platform) string {
	classifier := l.Natives[p.RuleName()]
	return strings.ReplaceAll(classifier, "${arch}", p.Bits())
}

// NativeArtifact resolves the natives jar for p.
func (l Library) NativeArtifact(p platform.Platform) (a Artifact, ok bool, err error) {
	classifier := l.NativeClassifier(p)
	if classifier == "" {
		return Artifact{}, false, nil
	}
	if l.Downloads != nil {
		if a, found := l.Downloads.Classifiers[classifier]; found {
			if a.Path == "" {
				c, err := l.Coordinate()
				if err != nil {
					return Artifact{}, false, NewConfigurationError(l.Name, "natives artifact has no path", err)
				}
				a.Path = c.WithClassifier(classifier).Path()
			}
			return a, true, nil
		}
	}

	c, err := l.Coordinate()
	if err != nil {
		return Artifact{}, false, NewConfigurationError(l.Name, "natives artifact has no path", err)
	}
	relPath := c.WithClassifier(classifier).Path()
	return Artifact{Path: relPath, URL: repositoryURL(l.URL) + relPath}, true, nil
}

// ExcludePatterns returns the extraction exclude globs.
func (l Library) ExcludePatterns() []string {
	if l.Extract == nil {
		return nil
	}
	return l.Extract.Exclude
}

func repositoryURL(base string) string {
	if base == "" {
		base = DefaultLibraryRepository
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}
