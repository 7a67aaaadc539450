// SPDX-License-Identifier: MPL-2.0

// Package launcher drives a version from descriptor to running game. It
// turns the loaded configuration into download, install and launch
// collaborators and runs them in order: load and flatten the descriptor,
// acquire its resources, extract natives, build the command line, then hand
// the process to the launch controller.
package launcher
