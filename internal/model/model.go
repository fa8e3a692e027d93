// Package model defines domain entities shared by the wallet, contract and archive layers.
package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/uuid/v5"
)

// Account is an opaque handle for the current signer (checksummed hex address).
// The zero value means "no account".
type Account string

// AccountFromAddress converts a chain address into an Account.
func AccountFromAddress(a common.Address) Account { return Account(a.Hex()) }

// Address returns the chain address behind the handle.
func (a Account) Address() common.Address { return common.HexToAddress(string(a)) }

// IsZero reports whether no account is set.
func (a Account) IsZero() bool { return a == "" }

// Short renders 0x1234…abcd for compact display.
func (a Account) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// WaveEntry is one immutable historical wave record.
type WaveEntry struct {
	Author      Account
	SubmittedAt time.Time
	Message     string
}

// RawWave mirrors the contract's Wave tuple. Field order matches the ABI components.
type RawWave struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// ArchivedWave is a wave persisted by the archiver.
type ArchivedWave struct {
	ID          uuid.UUID // content-derived, see convert.ArchiveID
	Contract    string    // checksummed contract address
	Author      Account
	Message     string
	SubmittedAt time.Time
	ObservedAt  time.Time // set by the database
}
