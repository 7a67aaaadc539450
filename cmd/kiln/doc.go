// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the kiln command line: fetch, install, launch and
// config. Commands are thin; the work happens in internal/app/launcher.
package cmd
