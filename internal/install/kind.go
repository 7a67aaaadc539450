// SPDX-License-Identifier: MPL-2.0

package install

import (
	"fmt"
	"strings"
)

const (
	// KindUnknown is the zero Kind. It cannot be installed.
	KindUnknown Kind = iota
	// KindForge installs Minecraft Forge.
	KindForge
	// KindFabric installs the Fabric loader.
	KindFabric
	// KindOptiFine patches the client jar with OptiFine.
	KindOptiFine
	// KindQuilt installs the Quilt loader.
	KindQuilt
	// KindNeoForge installs NeoForge.
	KindNeoForge
)

// Kind tags an installer variant.
type Kind int

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindForge:    "forge",
	KindFabric:   "fabric",
	KindOptiFine: "optifine",
	KindQuilt:    "quilt",
	KindNeoForge: "neoforge",
}

// String returns the lowercase loader name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsValid reports whether k names an installable loader.
func (k Kind) IsValid() bool {
	return k > KindUnknown && k <= KindNeoForge
}

// ParseKind maps a loader name to its Kind, ignoring case. Unrecognized
// names return KindUnknown and an error.
func ParseKind(s string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if k.IsValid() && name == needle {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown loader %q", s)
}
