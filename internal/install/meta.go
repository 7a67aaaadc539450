// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kilnlauncher/kiln/internal/download"
	"github.com/kilnlauncher/kiln/internal/resources"
	"github.com/kilnlauncher/kiln/pkg/gameinfo"
)

const (
	// DefaultFabricMeta is the Fabric metadata service.
	DefaultFabricMeta = "https://meta.fabricmc.net"
	// DefaultQuiltMeta is the Quilt metadata service.
	DefaultQuiltMeta = "https://meta.quiltmc.org"
)

// metaProfile installs loaders whose metadata service publishes a complete
// launch profile (Fabric, Quilt). No local patching is needed.
type metaProfile struct {
	params   Params
	meta     string
	api      string // path version segment: "v2" or "v3"
	idPrefix string
	profile  *gameinfo.GameInfo
}

func newFabric(p Params) *metaProfile {
	return &metaProfile{params: p, meta: orDefault(p.Repository, DefaultFabricMeta), api: "v2", idPrefix: "fabric-loader"}
}

func newQuilt(p Params) *metaProfile {
	return &metaProfile{params: p, meta: orDefault(p.Repository, DefaultQuiltMeta), api: "v3", idPrefix: "quilt-loader"}
}

func (m *metaProfile) absoluteID() string {
	return fmt.Sprintf("%s-%s-%s", m.idPrefix, m.params.LoaderVersion, m.params.GameVersion)
}

func (m *metaProfile) profileURL() string {
	return fmt.Sprintf("%s/%s/versions/loader/%s/%s/profile/json",
		strings.TrimSuffix(m.meta, "/"), m.api,
		url.PathEscape(m.params.GameVersion), url.PathEscape(m.params.LoaderVersion))
}

func (m *metaProfile) resolve(ctx context.Context, r *run) ([]download.Element, error) {
	var profile gameinfo.GameInfo
	if err := r.fetchJSON(ctx, m.profileURL(), &profile); err != nil {
		return nil, err
	}
	if profile.MainClass == "" {
		return nil, fmt.Errorf("%w: %s profile has no main class", ErrMalformedInstaller, m.idPrefix)
	}
	m.profile = &profile
	return resources.Libraries(r.deps.Layout, profile.Libraries, r.deps.Platform, nil)
}

func (m *metaProfile) compile(context.Context, *run) error { return nil }

func (m *metaProfile) descriptor(*run) (*gameinfo.GameInfo, error) {
	g := *m.profile
	g.Libraries = append([]gameinfo.Library(nil), m.profile.Libraries...)
	return &g, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
