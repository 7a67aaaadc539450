// SPDX-License-Identifier: MPL-2.0

// Package install applies mod loaders on top of an installed game version.
//
// Every loader is an Executor built by New from a Kind tag. An executor
// resolves the loader artifacts, acquires them through a download.Manager,
// runs any local patch step through a Toolchain, and persists a new version
// descriptor that inherits from the input one. Progress is published as
// non-decreasing fractions; 1.0 is published only when the run succeeds.
//
// Executors are single-use. A second Execute while one is in flight returns
// *AlreadyRunningError; Execute after completion returns ErrExecutorSpent.
package install
