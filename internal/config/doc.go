// SPDX-License-Identifier: MPL-2.0

// Package config loads the launcher configuration.
//
// Values come from three layers, later ones winning: built-in defaults, the
// CUE file config.cue in ConfigDir (validated against config_schema.cue),
// and KILN_* environment variables. The result is checked again in Go for
// rules the schema cannot express, such as min <= max memory and crash
// signature patterns that compile.
package config
