// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
#Settings: {
	name:     string & !=""
	workers?: int & >0 & <=64
	tags?: [...string]
}
`

type settings struct {
	Name    string   `json:"name"`
	Workers int      `json:"workers"`
	Tags    []string `json:"tags"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "kiln", workers: 8, tags: ["a"]`), "#Settings")
	require.NoError(t, err)
	assert.Equal(t, settings{Name: "kiln", Workers: 8, Tags: []string{"a"}}, *res.Value)
	assert.True(t, res.Unified.Exists(), "Unified value missing")
}

func TestParseAndDecodeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"out of range", `name: "x", workers: 100`, "workers"},
		{"wrong type", `name: 3`, "name"},
		{"unknown field", `name: "x", extra: true`, "extra"},
		{"syntax", `name: "x`, "cfg.cue"},
		{"empty name", `name: ""`, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(tt.data), "#Settings", WithFilename("cfg.cue"))
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "cfg.cue"), "error %q lacks the file name", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAndDecodeNonConcrete(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`workers: 2`), "#Settings")
	assert.Error(t, err, "concrete mode should require name")

	const partial = `
#Partial: {
	level?: *"info" | "debug"
	count?: int & >=0
}
`
	res, err := ParseAndDecode[map[string]any]([]byte(partial), []byte(`count: 2`), "#Partial", WithConcrete(false))
	require.NoError(t, err)
	assert.Contains(t, *res.Value, "count")
}

func TestParseAndDecodeLimits(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "kiln"`), "#Settings", WithMaxFileSize(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")

	_, err = ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "kiln"`), "#Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
}
