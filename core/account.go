package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountStatus is the stored lifecycle state of an ephemeral account.
// Expiry is not a stored state; see EphemeralAccount.IsExpired.
type AccountStatus uint8

const (
	StatusUninitialized AccountStatus = iota
	StatusActive
	StatusSwept
)

func (s AccountStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusActive:
		return "active"
	case StatusSwept:
		return "swept"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s AccountStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AccountStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "uninitialized":
		*s = StatusUninitialized
	case "active":
		*s = StatusActive
	case "swept":
		*s = StatusSwept
	default:
		return fmt.Errorf("unknown account status %q", text)
	}
	return nil
}

// Payment is a single recorded deposit into an ephemeral account.
type Payment struct {
	Asset  Address         `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Height uint64          `json:"height"`
}

// EphemeralAccount is the persisted state of one deposit address.
type EphemeralAccount struct {
	Address      Address                     `json:"address"`
	Status       AccountStatus               `json:"status"`
	Creator      Address                     `json:"creator"`
	Recovery     Address                     `json:"recovery"`
	ExpiryHeight uint64                      `json:"expiry_height"`
	Balances     map[Address]decimal.Decimal `json:"balances"`
	Payments     []Payment                   `json:"payments"`
}

// IsExpired reports whether the account is inert at the given ledger height.
func (a *EphemeralAccount) IsExpired(height uint64) bool {
	return height >= a.ExpiryHeight
}

// PaymentCount returns the number of payments recorded so far.
func (a *EphemeralAccount) PaymentCount() int {
	return len(a.Payments)
}

// HasBalance reports whether any asset carries a nonzero balance.
func (a *EphemeralAccount) HasBalance() bool {
	for _, amount := range a.Balances {
		if amount.Sign() > 0 {
			return true
		}
	}
	return false
}

// AccountInfo is the read view of an account at a given ledger height.
type AccountInfo struct {
	EphemeralAccount
	Expired      bool   `json:"expired"`
	PaymentCount int    `json:"payment_count"`
	Height       uint64 `json:"height"`
}

// ControllerState is the persisted state of one sweep controller deployment.
type ControllerState struct {
	AuthorizedSigner [32]byte
	Nonce            uint64
}
