// SPDX-License-Identifier: MPL-2.0

// Package resources converts resolved version descriptors into download
// elements: libraries, natives jars, the client jar, the asset index and the
// asset objects it lists.
package resources

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
	"github.com/kilnlauncher/kiln/pkg/platform"
)

// DefaultAssetRepository serves asset objects by hash.
const DefaultAssetRepository = "https://resources.download.minecraft.net/"

// maxAssetIndexSize bounds asset index documents read from disk.
const maxAssetIndexSize = 32 << 20

type (
	// AssetIndex is the decoded asset index document.
	AssetIndex struct {
		Objects        map[string]AssetObject `json:"objects"`
		Virtual        bool                   `json:"virtual,omitempty"`
		MapToResources bool                   `json:"map_to_resources,omitempty"`
	}

	// AssetObject is one hashed asset.
	AssetObject struct {
		Hash string `json:"hash"`
		Size int64  `json:"size"`
	}
)

// Library returns the elements of one library for p: its classpath
// artifact and, when it ships natives for p, the natives jar. Libraries
// whose rules exclude p, and artifacts without a URL (produced locally by
// an installer), yield nothing.
func Library(l gameinfo.Layout, lib gameinfo.Library, p platform.Platform, features map[string]bool) ([]download.Element, error) {
	if !lib.Rules.Allows(p, features) {
		return nil, nil
	}

	var out []download.Element
	a, ok, err := lib.Artifact()
	if err != nil {
		return nil, err
	}
	if ok && a.URL != "" {
		out = append(out, artifactElement(l, a))
	}

	na, ok, err := lib.NativeArtifact(p)
	if err != nil {
		return nil, err
	}
	if ok && na.URL != "" {
		out = append(out, artifactElement(l, na))
	}
	return out, nil
}

// Libraries collects the elements of every library in libs.
func Libraries(l gameinfo.Layout, libs []gameinfo.Library, p platform.Platform, features map[string]bool) ([]download.Element, error) {
	var out []download.Element
	for _, lib := range libs {
		elems, err := Library(l, lib, p, features)
		if err != nil {
			return nil, err
		}
		out = append(out, elems...)
	}
	return out, nil
}

// Client returns the client jar element of a flattened descriptor.
func Client(l gameinfo.Layout, flat *gameinfo.GameInfo) (download.Element, error) {
	a, ok := flat.Client()
	if !ok || a.URL == "" {
		return download.Element{}, gameinfo.NewConfigurationError(flat.ID, "descriptor declares no client download", nil)
	}
	return download.Element{
		Path:     l.ClientJarPath(flat.Jar),
		URL:      a.URL,
		Checksum: download.Checksum(a.SHA1),
		Size:     a.Size,
	}, nil
}

// Index returns the asset index element of a flattened descriptor, or false
// when it declares none.
func Index(l gameinfo.Layout, flat *gameinfo.GameInfo) (download.Element, bool) {
	ai := flat.AssetIndex
	if ai == nil || ai.URL == "" {
		return download.Element{}, false
	}
	return download.Element{
		Path:     l.AssetIndexPath(flat.AssetsID()),
		URL:      ai.URL,
		Checksum: download.Checksum(ai.SHA1),
		Size:     ai.Size,
	}, true
}

// Version collects the libraries, client jar and asset index of a flattened
// descriptor. Asset objects need the index on disk; see Objects.
func Version(l gameinfo.Layout, flat *gameinfo.GameInfo, p platform.Platform, features map[string]bool) ([]download.Element, error) {
	out, err := Libraries(l, flat.Libraries, p, features)
	if err != nil {
		return nil, err
	}
	client, err := Client(l, flat)
	if err != nil {
		return nil, err
	}
	out = append(out, client)
	if idx, ok := Index(l, flat); ok {
		out = append(out, idx)
	}
	return out, nil
}

// LoadAssetIndex reads the asset index with the given ID.
func LoadAssetIndex(l gameinfo.Layout, id string) (*AssetIndex, error) {
	path := l.AssetIndexPath(id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read asset index %s: %w", id, err)
	}
	if info.Size() > maxAssetIndexSize {
		return nil, fmt.Errorf("asset index %s is too large (%d bytes)", id, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset index %s: %w", id, err)
	}
	var idx AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse asset index %s: %w", id, err)
	}
	return &idx, nil
}

// Objects returns one element per asset object, ordered by asset name.
// Objects sharing a hash map to the same path and are fetched once.
func Objects(l gameinfo.Layout, idx *AssetIndex, repository string) []download.Element {
	if repository == "" {
		repository = DefaultAssetRepository
	}
	names := slices.Sorted(maps.Keys(idx.Objects))
	out := make([]download.Element, 0, len(names))
	for _, name := range names {
		obj := idx.Objects[name]
		if len(obj.Hash) < 2 {
			continue
		}
		out = append(out, download.Element{
			Path:     l.AssetObjectPath(obj.Hash),
			URL:      repository + obj.Hash[:2] + "/" + obj.Hash,
			Checksum: download.Checksum(obj.Hash),
			Size:     obj.Size,
		})
	}
	return out
}

func artifactElement(l gameinfo.Layout, a gameinfo.Artifact) download.Element {
	return download.Element{
		Path:     l.LibraryPath(a.Path),
		URL:      a.URL,
		Checksum: download.Checksum(a.SHA1),
		Size:     a.Size,
	}
}
