// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionableErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "launch the game"}, "failed to launch the game"},
		{
			"with resource",
			&ActionableError{Operation: "install Fabric", Resource: "1.20.1"},
			"failed to install Fabric 1.20.1",
		},
		{
			"with cause",
			&ActionableError{Operation: "load config", Cause: errors.New("bad field")},
			"failed to load config: bad field",
		},
		{
			"full",
			&ActionableError{Operation: "fetch", Resource: "1.8.9", Cause: errors.New("3 files failed")},
			"failed to fetch 1.8.9: 3 files failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestActionableErrorUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := fmt.Errorf("outer: %w", WrapWithContext(cause, "download", "client.jar"))

	assert.ErrorIs(t, err, cause)
	var ae *ActionableError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "client.jar", ae.Resource)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, WrapWithOperation(nil, "x"))
	assert.Nil(t, WrapWithContext(nil, "x", "y"))
}

func TestFormat(t *testing.T) {
	inner := errors.New("connection reset")
	err := &ActionableError{
		Operation:   "fetch",
		Resource:    "1.20.1",
		Suggestions: []string{"Retry", "Configure a mirror"},
		Cause:       fmt.Errorf("download assets: %w", inner),
	}

	short := err.Format(false)
	assert.Regexp(t, `^failed to fetch 1\.20\.1: download assets: connection reset`, short)
	assert.Contains(t, short, "\n  • Retry\n  • Configure a mirror")
	assert.NotContains(t, short, "Caused by")

	long := err.Format(true)
	assert.Contains(t, long, "Caused by:\n  1. download assets: connection reset\n  2. connection reset")
}

func TestErrorContextBuild(t *testing.T) {
	assert.Nil(t, NewErrorContext().WithResource("x").Build(), "Build() without operation")
	assert.NoError(t, NewErrorContext().BuildError())

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("install Forge").
		WithResource("47.2.0").
		WithSuggestion("Check Java").
		WithSuggestions("Retry", "Use --verbose").
		Wrap(cause).
		Build()
	require.NotNil(t, ae)
	assert.True(t, ae.HasSuggestions())
	assert.Len(t, ae.Suggestions, 3)
	assert.ErrorIs(t, ae, cause)
	assert.EqualError(t, ae, "failed to install Forge 47.2.0: boom")
}
