// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfflineUUID(t *testing.T) {
	t.Parallel()

	id := OfflineUUID("Steve")
	assert.Len(t, id, 32)
	assert.Equal(t, byte('3'), id[12], "name-based UUIDs carry version 3")
	assert.Contains(t, "89ab", string(id[16]), "RFC 4122 variant")
	assert.Equal(t, id, OfflineUUID("Steve"))
	assert.NotEqual(t, id, OfflineUUID("Alex"))
}

func TestOfflineAccount(t *testing.T) {
	t.Parallel()

	a := OfflineAccount("Steve")
	assert.NoError(t, a.Validate())
	assert.Equal(t, "legacy", a.UserType())
	assert.Equal(t, AccountOffline, a.Type)

	assert.ErrorIs(t, Account{UUID: "x"}.Validate(), ErrInvalidAccount)
	assert.ErrorIs(t, Account{Name: "x"}.Validate(), ErrInvalidAccount)
	assert.Equal(t, "msa", Account{Type: AccountMSA}.UserType())
}
