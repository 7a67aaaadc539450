// SPDX-License-Identifier: MPL-2.0

package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// mirrors
	_ "gocloud.dev/blob/memblob"  // mem:// mirrors
	"gocloud.dev/gcerrors"
)

type (
	// Mirror serves every URL starting with Prefix from Bucket. The object
	// key is KeyPrefix followed by the rest of the URL.
	Mirror struct {
		Prefix    string
		KeyPrefix string
		Bucket    *blob.Bucket
	}

	// Router dispatches fetches to the longest matching mirror and falls
	// back to the origin fetcher when the mirror does not have the object.
	Router struct {
		mirrors []Mirror
		origin  Fetcher
		logger  *slog.Logger
	}
)

// OpenMirror opens bucketURL (for example file:///srv/mirror or mem://) as a
// mirror for URLs starting with prefix.
func OpenMirror(ctx context.Context, prefix, bucketURL string) (Mirror, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return Mirror{}, fmt.Errorf("open mirror bucket %s: %w", bucketURL, err)
	}
	return Mirror{Prefix: prefix, Bucket: bkt}, nil
}

// NewRouter creates a Router. A nil origin disables fallback.
func NewRouter(origin Fetcher, logger *slog.Logger, mirrors ...Mirror) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := append([]Mirror(nil), mirrors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Router{mirrors: sorted, origin: origin, logger: logger}
}

// Fetch serves rawURL from a mirror when one matches, otherwise from origin.
func (r *Router) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	for _, m := range r.mirrors {
		if !strings.HasPrefix(rawURL, m.Prefix) {
			continue
		}
		key := m.KeyPrefix + strings.TrimPrefix(rawURL, m.Prefix)
		rc, err := m.Bucket.NewReader(ctx, key, nil)
		if err == nil {
			return rc, nil
		}
		if gcerrors.Code(err) != gcerrors.NotFound || r.origin == nil {
			if gcerrors.Code(err) == gcerrors.NotFound {
				return nil, fmt.Errorf("%w: mirror key %s", ErrNotFound, key)
			}
			return nil, fmt.Errorf("mirror read %s: %w", key, err)
		}
		r.logger.Debug("mirror miss, falling back to origin", "url", rawURL, "key", key)
		break
	}

	if r.origin == nil {
		return nil, fmt.Errorf("%w: no mirror for %s", ErrUnsupportedURL, rawURL)
	}
	return r.origin.Fetch(ctx, rawURL)
}

// Close closes every mirror bucket.
func (r *Router) Close() error {
	var firstErr error
	for _, m := range r.mirrors {
		if err := m.Bucket.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
