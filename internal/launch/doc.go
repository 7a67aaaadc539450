// SPDX-License-Identifier: MPL-2.0

// Package launch supervises the game process.
//
// A Controller runs one session at a time through the lifecycle
// Ready -> Starting -> Running -> Exited | Crashed, or Ready -> Faulted when
// preflight inspection rejects the environment. Terminal states are never
// left; a new Launch starts a new Session. Transitions and output lines are
// delivered to subscribers in order through a notify.Hub.
package launch
