// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by the test suites: a manually
// advanced clock and environment helpers that fail the test on error.
package testutil
