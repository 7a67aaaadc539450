// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// maxDescriptorSize bounds descriptor files read from disk.
const maxDescriptorSize = 16 << 20

// Layout resolves the on-disk locations of a game directory.
type Layout struct {
	Root string
}

// VersionsDir returns <root>/versions.
func (l Layout) VersionsDir() string { return filepath.Join(l.Root, "versions") }

// VersionDir returns <root>/versions/<id>.
func (l Layout) VersionDir(id string) string { return filepath.Join(l.VersionsDir(), id) }

// DescriptorPath returns <root>/versions/<id>/<id>.json.
func (l Layout) DescriptorPath(id string) string {
	return filepath.Join(l.VersionDir(id), id+".json")
}

// ClientJarPath returns <root>/versions/<id>/<id>.jar.
func (l Layout) ClientJarPath(id string) string {
	return filepath.Join(l.VersionDir(id), id+".jar")
}

// NativesDir returns <root>/versions/<id>/natives.
func (l Layout) NativesDir(id string) string { return filepath.Join(l.VersionDir(id), "natives") }

// LibrariesDir returns <root>/libraries.
func (l Layout) LibrariesDir() string { return filepath.Join(l.Root, "libraries") }

// LibraryPath converts a slash-separated artifact path into a local path.
func (l Layout) LibraryPath(rel string) string {
	return filepath.Join(l.LibrariesDir(), filepath.FromSlash(rel))
}

// AssetsDir returns <root>/assets.
func (l Layout) AssetsDir() string { return filepath.Join(l.Root, "assets") }

// AssetIndexPath returns <root>/assets/indexes/<id>.json.
func (l Layout) AssetIndexPath(id string) string {
	return filepath.Join(l.AssetsDir(), "indexes", id+".json")
}

// AssetObjectPath returns <root>/assets/objects/<hh>/<hash>.
func (l Layout) AssetObjectPath(hash string) string {
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(l.AssetsDir(), "objects", prefix, hash)
}

// Parse decodes a descriptor document.
func Parse(data []byte) (*GameInfo, error) {
	var g GameInfo
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse version descriptor: %w", err)
	}
	return &g, nil
}

// Marshal encodes a descriptor document. Parent is never written; the link
// is kept through InheritsFrom.
func Marshal(g *GameInfo) ([]byte, error) {
	doc := *g
	if doc.Parent != nil && doc.InheritsFrom == "" {
		doc.InheritsFrom = doc.Parent.ID
	}
	return json.MarshalIndent(&doc, "", "  ")
}

// Load reads the descriptor id and every ancestor it inherits from, linking
// them through Parent. A missing ancestor or an inheritance loop returns a
// *ConfigurationError wrapping ErrBrokenChain or a *dag.CycleError.
func Load(l Layout, id string) (*GameInfo, error) {
	loaded := map[string]*GameInfo{}

	var head, prev *GameInfo
	for cur := id; cur != ""; {
		if g, ok := loaded[cur]; ok {
			// Let Chain report the loop with its cycle members.
			prev.Parent = g
			break
		}

		g, err := readDescriptor(l, cur)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && prev != nil {
				return nil, NewConfigurationError(prev.ID, "parent version "+cur+" is not installed", errors.Join(ErrBrokenChain, err))
			}
			return nil, err
		}
		loaded[cur] = g

		if prev == nil {
			head = g
		} else {
			prev.Parent = g
		}
		prev = g
		cur = g.InheritsFrom
	}

	if _, err := Chain(head); err != nil {
		return nil, err
	}
	return head, nil
}

func readDescriptor(l Layout, id string) (*GameInfo, error) {
	if err := ValidateID(id); err != nil {
		return nil, NewConfigurationError(id, "invalid version id", err)
	}

	path := l.DescriptorPath(id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read version %s: %w", id, err)
	}
	if info.Size() > maxDescriptorSize {
		return nil, NewConfigurationError(id, fmt.Sprintf("descriptor exceeds %d bytes", maxDescriptorSize), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version %s: %w", id, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, NewConfigurationError(id, "malformed descriptor", err)
	}
	if g.ID == "" {
		g.ID = id
	}
	return g, nil
}

// Save writes g to its descriptor path. The file is written to a temporary
// sibling and renamed into place so readers never observe a partial document.
func Save(l Layout, g *GameInfo) (err error) {
	if err := ValidateID(g.ID); err != nil {
		return NewConfigurationError(g.ID, "invalid version id", err)
	}

	data, err := Marshal(g)
	if err != nil {
		return fmt.Errorf("encode version %s: %w", g.ID, err)
	}

	dir := l.VersionDir(g.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+g.ID+".*.json")
	if err != nil {
		return fmt.Errorf("create temp descriptor: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) // Best-effort cleanup of a failed write.
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write descriptor: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close descriptor: %w", err)
	}
	if err = os.Rename(tmpPath, l.DescriptorPath(g.ID)); err != nil {
		return fmt.Errorf("install descriptor: %w", err)
	}
	return nil
}
