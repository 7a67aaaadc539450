// SPDX-License-Identifier: MPL-2.0

// Package issue turns launcher failures into guidance a player can act on.
//
// Two layers live here. ActionableError decorates an error with the step
// that failed and short hints, for the one-line terminal output. Issue is a
// catalog entry holding a longer Markdown explanation rendered with glamour
// when the failure has a well-known remedy.
package issue
