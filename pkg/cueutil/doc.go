// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user CUE files against an embedded schema.
//
// A parse compiles the schema, compiles the user bytes, unifies them under
// one schema definition, validates the result and decodes it:
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[map[string]any](schema, data, "#Config",
//		cueutil.WithFilename(path), cueutil.WithConcrete(false))
//
// Errors carry the file name and the dotted field path of every problem.
package cueutil
