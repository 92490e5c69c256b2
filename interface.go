package sweeper

import (
	"context"
	"crypto/ed25519"

	"github.com/layer-3/sweeper/codec"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/service"
	"github.com/shopspring/decimal"
)

// SweepParams are the controller inputs a sweep digest is built from.
type SweepParams = service.SweepParams

// ControllerInfo describes a sweep controller deployment.
type ControllerInfo struct {
	Controller  core.Address `json:"controller"`
	Initialized bool         `json:"initialized"`
	Signer      string       `json:"signer,omitempty"`
	Nonce       uint64       `json:"nonce"`
}

// AccountStatus is the stored status of an account together with its expiry
// at the current ledger height.
type AccountStatus struct {
	Address core.Address       `json:"address"`
	Status  core.AccountStatus `json:"status"`
	Expired bool               `json:"expired"`
}

// Client represents the public interface for orchestrators and off-chain
// signers talking to a sweeper daemon
type Client interface {
	// Controller returns the controller identity and current state
	Controller(ctx context.Context) (*ControllerInfo, error)

	// InitializeController sets the authorized signer, once
	InitializeController(ctx context.Context, signer ed25519.PublicKey) error

	// SweepNonce returns the nonce the next sweep must be signed against
	SweepNonce(ctx context.Context) (uint64, error)

	// SweepParams returns the current controller identity, nonce and ledger
	// clock
	SweepParams(ctx context.Context) (*SweepParams, error)

	// SweepDigest returns the digest the authorized signer must sign to
	// sweep to destination right now, and the params it was built from
	SweepDigest(ctx context.Context, destination core.Address) ([codec.DigestSize]byte, *SweepParams, error)

	// InitializeAccount activates a new ephemeral account
	InitializeAccount(ctx context.Context, address, creator core.Address,
		expiryHeight uint64, recovery core.Address) (*core.AccountInfo, error)

	// Account returns the full account record
	Account(ctx context.Context, address core.Address) (*core.AccountInfo, error)

	// AccountStatus returns the stored status and expiry of an account
	AccountStatus(ctx context.Context, address core.Address) (*AccountStatus, error)

	// RecordPayment credits a payment to an account's recorded balance
	RecordPayment(ctx context.Context, address, asset core.Address,
		amount decimal.Decimal) (*core.AccountInfo, error)

	// CanSweep reports whether an account is Active and holds funds
	CanSweep(ctx context.Context, address core.Address) (bool, error)

	// ExecuteSweep submits a signed sweep
	ExecuteSweep(ctx context.Context, address, destination core.Address,
		signature []byte) (*core.SweepCompleted, error)

	// SweepRecord returns the record of a completed sweep
	SweepRecord(ctx context.Context, address core.Address) (*core.SweepCompleted, error)

	// Deposit credits assets to an owner on the ledger transfer service
	Deposit(ctx context.Context, asset, owner core.Address, amount decimal.Decimal) (decimal.Decimal, error)

	// Balance returns an owner's balance of an asset
	Balance(ctx context.Context, asset, owner core.Address) (decimal.Decimal, error)
}

// Signer produces authorization signatures over sweep digests
type Signer interface {
	// SignDigest signs a sweep digest
	SignDigest(digest [codec.DigestSize]byte) ([]byte, error)
}
