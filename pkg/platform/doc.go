// SPDX-License-Identifier: MPL-2.0

// Package platform describes the host a game is launched on.
//
// Version descriptors gate libraries and arguments on the operating system
// name and architecture using their own vocabulary ("osx", "x86"). Platform
// translates Go's runtime identifiers into that vocabulary so rule evaluation
// never reads runtime.GOOS directly and stays deterministic under test.
package platform
