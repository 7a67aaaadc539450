// SPDX-License-Identifier: MPL-2.0

// Package gameinfo models version descriptors: the JSON documents under
// versions/<id>/<id>.json that describe a game version's main class,
// arguments, libraries and assets.
//
// A descriptor may inherit from another one ("inheritsFrom"). Load links the
// chain through Parent pointers, Chain and Flatten walk it root-first, and a
// missing or cyclic link is reported as a *ConfigurationError.
package gameinfo
