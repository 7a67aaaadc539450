// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests keep the json tags of the Go structs and the field names of
// config_schema.cue in step. A field present on one side only would be
// silently dropped when loading.

func cueFields(t *testing.T, def string) map[string]bool {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	require.NoError(t, schema.Err(), "compile schema")
	val := schema.LookupPath(cue.ParsePath(def))
	require.NoError(t, val.Err(), "lookup %s", def)

	iter, err := val.Fields(cue.Optional(true))
	require.NoError(t, err, "fields of %s", def)
	fields := make(map[string]bool)
	for iter.Next() {
		sel := iter.Selector()
		if sel.IsDefinition() || sel.LabelType().IsHidden() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = iter.IsOptional()
	}
	return fields
}

func jsonFields(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}
	return fields
}

func TestSchemaMatchesStructs(t *testing.T) {
	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#JavaConfig", reflect.TypeFor[JavaConfig]()},
		{"#DownloadConfig", reflect.TypeFor[DownloadConfig]()},
		{"#Mirror", reflect.TypeFor[Mirror]()},
		{"#RepositoriesConfig", reflect.TypeFor[RepositoriesConfig]()},
		{"#LaunchConfig", reflect.TypeFor[LaunchConfig]()},
		{"#CrashSignature", reflect.TypeFor[CrashSignature]()},
		{"#UIConfig", reflect.TypeFor[UIConfig]()},
		{"#LogConfig", reflect.TypeFor[LogConfig]()},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			fromCUE := cueFields(t, tt.def)
			fromGo := jsonFields(t, tt.typ)
			for name := range fromCUE {
				assert.True(t, fromGo[name], "%s.%s has no matching json tag on %s", tt.def, name, tt.typ.Name())
			}
			for name := range fromGo {
				assert.Contains(t, fromCUE, name, "%s json tag is missing from %s", tt.typ.Name(), tt.def)
			}
		})
	}
}

func TestMapstructureAndTOMLTagsMatchJSON(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeFor[Config](), reflect.TypeFor[JavaConfig](), reflect.TypeFor[DownloadConfig](),
		reflect.TypeFor[Mirror](), reflect.TypeFor[RepositoriesConfig](), reflect.TypeFor[LaunchConfig](),
		reflect.TypeFor[CrashSignature](), reflect.TypeFor[UIConfig](), reflect.TypeFor[LogConfig](),
	} {
		for i := range typ.NumField() {
			f := typ.Field(i)
			json, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			assert.Equal(t, json, f.Tag.Get("mapstructure"), "%s.%s mapstructure tag", typ.Name(), f.Name)
			assert.Equal(t, json, f.Tag.Get("toml"), "%s.%s toml tag", typ.Name(), f.Name)
		}
	}
}

func validateCUE(t *testing.T, data string) error {
	t.Helper()

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	require.NoError(t, schema.Err(), "compile schema")
	user := ctx.CompileString(data)
	if err := user.Err(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return schema.LookupPath(cue.ParsePath("#Config")).Unify(user).Validate(cue.Concrete(true))
}

func TestSchemaConstraints(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"empty file", ``, false},
		{"full java", `java: {path: "/usr/bin/java", min_memory_mb: 512, max_memory_mb: 4096, jvm_args: "-XX:+UseG1GC"}`, false},
		{"negative memory", `java: {max_memory_mb: -1}`, true},
		{"zero concurrency", `download: {concurrency: 0}`, true},
		{"too many attempts", `download: {attempts: 21}`, true},
		{"duration", `download: {timeout: "1m30s"}`, false},
		{"fractional duration", `launch: {crash_grace_period: "1.5s"}`, false},
		{"bad duration", `download: {timeout: "soon"}`, true},
		{"duration without unit", `download: {timeout: "30"}`, true},
		{"mirror", `mirrors: [{prefix: "https://libraries.minecraft.net/", url: "file:///srv/mirror"}]`, false},
		{"mirror without scheme", `mirrors: [{prefix: "https://x/", url: "/srv/mirror"}]`, true},
		{"mirror non-http prefix", `mirrors: [{prefix: "ftp://x/", url: "mem://"}]`, true},
		{"mirror missing url", `mirrors: [{prefix: "https://x/"}]`, true},
		{"repository", `repositories: {fabric_meta: "https://meta.fabricmc.net"}`, false},
		{"repository not a URL", `repositories: {forge: "maven"}`, true},
		{"signature", `launch: {crash_signatures: [{name: "mixin", pattern: "MixinApplyError"}]}`, false},
		{"signature without name", `launch: {crash_signatures: [{name: "", pattern: "x"}]}`, true},
		{"color scheme", `ui: {color_scheme: "dark"}`, false},
		{"unknown color scheme", `ui: {color_scheme: "blue"}`, true},
		{"log level", `log: {level: "trace"}`, true},
		{"unknown top-level field", `theme: "dark"`, true},
		{"unknown nested field", `java: {home: "/opt"}`, true},
		{"empty game dir", `game_dir: ""`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCUE(t, tt.data)
			if tt.wantErr {
				assert.Error(t, err, "validate %q", tt.data)
			} else {
				assert.NoError(t, err, "validate %q", tt.data)
			}
		})
	}
}
