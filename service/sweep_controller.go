package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"math"
	"sort"

	"github.com/layer-3/sweeper/codec"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/shopspring/decimal"
)

// SweepParams are the inputs an off-chain signer needs to build a digest
// that will verify against the current controller state.
type SweepParams struct {
	Controller  core.Address `json:"controller"`
	Initialized bool         `json:"initialized"`
	Nonce       uint64       `json:"nonce"`
	Timestamp   uint64       `json:"timestamp"`
	Height      uint64       `json:"height"`
}

// SweepController holds the authorized signing key and the replay-prevention
// nonce of one deployment, and drives sweeps of ephemeral accounts.
type SweepController struct {
	id       core.Address
	ledger   ports.Ledger
	chain    ports.Chain
	accounts *AccountService
	transfer ports.AssetTransfer
	eventPub ports.EventPublisher
}

// NewSweepController creates a controller identified by id. accounts must be
// configured to accept sweeps from id.
func NewSweepController(
	id core.Address,
	ledger ports.Ledger,
	chain ports.Chain,
	accounts *AccountService,
	transfer ports.AssetTransfer,
	eventPub ports.EventPublisher,
) *SweepController {
	return &SweepController{
		id:       id,
		ledger:   ledger,
		chain:    chain,
		accounts: accounts,
		transfer: transfer,
		eventPub: eventPub,
	}
}

// Identity returns the controller identity folded into every digest.
func (c *SweepController) Identity() core.Address {
	return c.id
}

func (c *SweepController) loadSigner(tx ports.ReadTx) (ed25519.PublicKey, error) {
	b, err := tx.Get(signerKey(c.id))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("stored signer has %d bytes", len(b))
	}
	return ed25519.PublicKey(b), nil
}

func (c *SweepController) loadNonce(tx ports.ReadTx) (uint64, error) {
	b, err := tx.Get(nonceKey(c.id))
	if err != nil {
		return 0, err
	}
	if b == nil {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("stored nonce has %d bytes", len(b))
	}
	return byteOrder.Uint64(b), nil
}

func (c *SweepController) putNonce(tx ports.Tx, nonce uint64) error {
	var b [8]byte
	byteOrder.PutUint64(b[:], nonce)
	return tx.Put(nonceKey(c.id), b[:])
}

// Initialize stores the authorized signer and sets the nonce to zero. It can
// succeed only once per deployment.
func (c *SweepController) Initialize(ctx context.Context, signer ed25519.PublicKey) error {
	if len(signer) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d",
			core.ErrInvalidPublicKey, ed25519.PublicKeySize, len(signer))
	}

	err := c.ledger.Update(ctx, func(tx ports.Tx) error {
		existing, err := c.loadSigner(tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return core.ErrAlreadyInitialized
		}

		if err := tx.Put(signerKey(c.id), signer); err != nil {
			return err
		}
		return c.putNonce(tx, 0)
	})
	if err != nil {
		return err
	}

	log.Infof("Controller %v initialized with signer %x", c.id, []byte(signer))

	return nil
}

// State returns the controller state, or nil if Initialize never succeeded.
func (c *SweepController) State(ctx context.Context) (*core.ControllerState, error) {
	var state *core.ControllerState
	err := c.ledger.View(ctx, func(tx ports.ReadTx) error {
		signer, err := c.loadSigner(tx)
		if err != nil || signer == nil {
			return err
		}
		nonce, err := c.loadNonce(tx)
		if err != nil {
			return err
		}

		state = &core.ControllerState{Nonce: nonce}
		copy(state.AuthorizedSigner[:], signer)
		return nil
	})
	return state, err
}

// GetSweepNonce returns the nonce the next sweep signature must commit to.
func (c *SweepController) GetSweepNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	err := c.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		nonce, err = c.loadNonce(tx)
		return err
	})
	return nonce, err
}

// SweepParams returns the controller identity, current nonce and current
// ledger clock.
func (c *SweepController) SweepParams(ctx context.Context) (*SweepParams, error) {
	params := &SweepParams{Controller: c.id}
	err := c.ledger.View(ctx, func(tx ports.ReadTx) error {
		signer, err := c.loadSigner(tx)
		if err != nil {
			return err
		}
		params.Initialized = signer != nil

		params.Nonce, err = c.loadNonce(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	params.Height = c.chain.Height()
	params.Timestamp = c.chain.Timestamp()

	return params, nil
}

// CanSweep reports whether the account is Active and holds a nonzero
// recorded balance.
func (c *SweepController) CanSweep(ctx context.Context, account core.Address) (bool, error) {
	var ok bool
	err := c.ledger.View(ctx, func(tx ports.ReadTx) error {
		acct, err := c.accounts.Load(tx, account)
		if err != nil || acct == nil {
			return err
		}
		ok = acct.Status == core.StatusActive && acct.HasBalance()
		return nil
	})
	return ok, err
}

// ExecuteSweep verifies signature over the digest of (destination, current
// nonce, controller identity, current ledger timestamp), advances the nonce,
// marks the account swept and moves its balances to destination. Either all
// of it commits or none of it does.
func (c *SweepController) ExecuteSweep(ctx context.Context, account, destination core.Address,
	signature []byte) (*core.SweepCompleted, error) {

	var completed *core.SweepCompleted
	err := c.ledger.Update(ctx, func(tx ports.Tx) error {
		completed = nil

		signer, err := c.loadSigner(tx)
		if err != nil {
			return err
		}
		if signer == nil {
			return core.ErrAuthorizedSignerNotSet
		}

		nonce, err := c.loadNonce(tx)
		if err != nil {
			return err
		}
		height := c.chain.Height()
		timestamp := c.chain.Timestamp()

		if len(signature) != ed25519.SignatureSize {
			return fmt.Errorf("%w: expected %d bytes, got %d",
				core.ErrInvalidSignature, ed25519.SignatureSize, len(signature))
		}
		digest := codec.Digest(destination, nonce, c.id, timestamp)
		if !ed25519.Verify(signer, digest[:], signature) {
			return core.ErrSignatureVerificationFailed
		}

		// The nonce is consumed before anything else is touched. Any
		// failure below aborts the transaction, increment included.
		if nonce == math.MaxUint64 {
			return core.ErrInvalidNonce
		}
		if err := c.putNonce(tx, nonce+1); err != nil {
			return err
		}

		balances, err := c.accounts.Sweep(ctx, tx, c.id, account, destination)
		if err != nil {
			return err
		}

		for _, asset := range sortedAssets(balances) {
			amount := balances[asset]
			if amount.Sign() <= 0 {
				continue
			}
			err := c.transfer.Transfer(ctx, tx, account, destination, asset, amount)
			if err != nil {
				return transferError(asset, amount, err)
			}
		}

		completed = &core.SweepCompleted{
			Account:     account,
			Destination: destination,
			Nonce:       nonce,
			Balances:    balances,
			Height:      height,
			Timestamp:   timestamp,
		}
		return putJSON(tx, sweepKey(account), completed)
	})
	if err != nil {
		log.Debugf("Sweep of %v rejected: %v", account, err)
		return nil, err
	}

	log.Infof("Swept account %v to %v (nonce=%d, assets=%d)",
		account, destination, completed.Nonce, len(completed.Balances))

	if err := c.eventPub.PublishSweepCompleted(ctx, *completed); err != nil {
		// The sweep is committed and its record persisted.
		log.Warnf("Failed to publish sweep event for %v: %v", account, err)
	}

	return completed, nil
}

// SweepRecord returns the persisted SweepCompleted record for account, or
// nil if it has not been swept.
func (c *SweepController) SweepRecord(ctx context.Context, account core.Address) (*core.SweepCompleted, error) {
	var record *core.SweepCompleted
	err := c.ledger.View(ctx, func(tx ports.ReadTx) error {
		var r core.SweepCompleted
		ok, err := getJSON(tx, sweepKey(account), &r)
		if err != nil || !ok {
			return err
		}
		record = &r
		return nil
	})
	return record, err
}

func sortedAssets(balances map[core.Address]decimal.Decimal) []core.Address {
	assets := make([]core.Address, 0, len(balances))
	for asset := range balances {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		return bytes.Compare(assets[i][:], assets[j][:]) < 0
	})
	return assets
}

// transferError keeps protocol errors from the transfer service as they are
// and classifies anything else as a failed transfer.
func transferError(asset core.Address, amount decimal.Decimal, err error) error {
	if _, ok := core.KindOf(err); ok {
		return fmt.Errorf("transfer of %v %v: %w", amount, asset, err)
	}
	return fmt.Errorf("transfer of %v %v: %w: %w", amount, asset, core.ErrTransferFailed, err)
}
