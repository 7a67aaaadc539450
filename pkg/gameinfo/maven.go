// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"fmt"
	"path"
	"strings"
)

// Coordinate is a parsed Maven coordinate of the form
// group:artifact:version[:classifier][@extension].
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

// ParseCoordinate parses a Maven coordinate. The extension defaults to "jar".
func ParseCoordinate(name string) (Coordinate, error) {
	ext := "jar"
	if at := strings.LastIndexByte(name, '@'); at >= 0 {
		ext = name[at+1:]
		name = name[:at]
	}

	parts := strings.Split(name, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, name)
	}
	for _, p := range parts {
		if p == "" {
			return Coordinate{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidCoordinate, name)
		}
	}

	c := Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2], Extension: ext}
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	return c, nil
}

// WithClassifier returns a copy of c with the given classifier.
func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// Path returns the repository-relative path, always slash-separated.
func (c Coordinate) Path() string {
	file := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		file += "-" + c.Classifier
	}
	file += "." + c.Extension
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, file)
}

// Key identifies a library independent of its version, so that a child
// descriptor's library replaces the parent's.
func (c Coordinate) Key() string {
	key := c.Group + ":" + c.Artifact
	if c.Classifier != "" {
		key += ":" + c.Classifier
	}
	return key
}

// String formats the coordinate back into its canonical form.
func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	if c.Extension != "" && c.Extension != "jar" {
		s += "@" + c.Extension
	}
	return s
}
