// SPDX-License-Identifier: MPL-2.0

package gameinfo

import (
	"crypto/md5" //nolint:gosec // Offline UUIDs are defined as name-based MD5 (version 3).
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	AccountMSA     AccountType = "msa"
	AccountMojang  AccountType = "mojang"
	AccountLegacy  AccountType = "legacy"
	AccountOffline AccountType = "offline"
)

// ErrInvalidAccount is returned when an Account cannot be used to launch.
var ErrInvalidAccount = errors.New("invalid account")

type (
	// AccountType identifies how an account was authenticated.
	AccountType string

	// Account is the player identity substituted into launch arguments.
	// Credential storage and refresh live outside the core.
	Account struct {
		Name        string
		UUID        string
		AccessToken string
		ClientToken string
		XUID        string
		Type        AccountType
	}
)

// OfflineAccount returns an account usable without authentication. Its UUID
// matches the one game servers derive for offline players of the same name.
func OfflineAccount(name string) Account {
	return Account{
		Name:        name,
		UUID:        OfflineUUID(name),
		AccessToken: "0",
		Type:        AccountOffline,
	}
}

// OfflineUUID returns the name-based UUID of "OfflinePlayer:<name>" without dashes.
func OfflineUUID(name string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + name)) //nolint:gosec // see import
	u, _ := uuid.FromBytes(sum[:])                  // 16 bytes; cannot fail
	u[6] = (u[6] & 0x0f) | 0x30
	u[8] = (u[8] & 0x3f) | 0x80
	return strings.ReplaceAll(u.String(), "-", "")
}

// UserType returns the ${user_type} value for the account.
func (a Account) UserType() string {
	switch a.Type {
	case AccountMSA:
		return "msa"
	case AccountMojang:
		return "mojang"
	default:
		return "legacy"
	}
}

// Validate returns an error if the account lacks a name or UUID.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.Join(ErrInvalidAccount, errors.New("player name is empty"))
	}
	if strings.TrimSpace(a.UUID) == "" {
		return errors.Join(ErrInvalidAccount, errors.New("uuid is empty"))
	}
	return nil
}
