// SPDX-License-Identifier: MPL-2.0

// Package download acquires the files a game version needs.
//
// Manager.Acquire fetches a batch of Elements with bounded concurrency,
// retries transient failures and checksum mismatches per element, verifies
// integrity, and writes every file through a temporary sibling that is
// renamed into place only after verification. Files already present and
// valid are skipped, so repeated calls are idempotent.
//
// Every input element receives exactly one Result. When any element fails,
// Acquire also returns an *IncompleteResourcesError listing the failures.
//
// Remote sources are abstracted behind Fetcher. HTTPFetcher talks to origin
// servers; Router additionally serves URL prefixes from gocloud.dev/blob
// buckets configured as mirrors.
package download
