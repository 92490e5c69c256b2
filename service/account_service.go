package service

import (
	"context"
	"fmt"

	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/shopspring/decimal"
)

// DefaultMaxAssets is the number of distinct assets one account may hold.
const DefaultMaxAssets = 10

// AccountService owns the lifecycle and balance bookkeeping of ephemeral
// accounts.
type AccountService struct {
	ledger   ports.Ledger
	chain    ports.Chain
	eventPub ports.EventPublisher

	// controller is the only caller allowed to sweep.
	controller core.Address
	maxAssets  int
}

// NewAccountService creates a new account service. Sweeps are accepted only
// from controller.
func NewAccountService(
	ledger ports.Ledger,
	chain ports.Chain,
	eventPub ports.EventPublisher,
	controller core.Address,
	maxAssets int,
) *AccountService {
	if maxAssets <= 0 {
		maxAssets = DefaultMaxAssets
	}

	return &AccountService{
		ledger:     ledger,
		chain:      chain,
		eventPub:   eventPub,
		controller: controller,
		maxAssets:  maxAssets,
	}
}

// Load returns the stored account, or nil if it was never initialized.
func (s *AccountService) Load(tx ports.ReadTx, address core.Address) (*core.EphemeralAccount, error) {
	var acct core.EphemeralAccount
	ok, err := getJSON(tx, accountKey(address), &acct)
	if err != nil || !ok {
		return nil, err
	}
	if acct.Balances == nil {
		acct.Balances = make(map[core.Address]decimal.Decimal)
	}
	return &acct, nil
}

// active loads the account and rejects it unless it is Active and unexpired
// at height.
func (s *AccountService) active(tx ports.ReadTx, address core.Address, height uint64) (*core.EphemeralAccount, error) {
	acct, err := s.Load(tx, address)
	if err != nil {
		return nil, err
	}

	switch {
	case acct == nil:
		return nil, fmt.Errorf("%w: %w", core.ErrNotActive, core.ErrAccountNotFound)
	case acct.Status == core.StatusSwept:
		return nil, fmt.Errorf("%w: %w", core.ErrNotActive, core.ErrAlreadySwept)
	case acct.Status != core.StatusActive:
		return nil, fmt.Errorf("%w: status %v", core.ErrNotActive, acct.Status)
	case acct.IsExpired(height):
		return nil, fmt.Errorf("%w: expired at height %d", core.ErrNotActive, acct.ExpiryHeight)
	}

	return acct, nil
}

// Initialize moves an account from Uninitialized to Active.
func (s *AccountService) Initialize(ctx context.Context, address, creator core.Address,
	expiryHeight uint64, recovery core.Address) error {

	err := s.ledger.Update(ctx, func(tx ports.Tx) error {
		existing, err := s.Load(tx, address)
		if err != nil {
			return err
		}
		if existing != nil {
			return core.ErrAlreadyInitialized
		}

		return putJSON(tx, accountKey(address), &core.EphemeralAccount{
			Address:      address,
			Status:       core.StatusActive,
			Creator:      creator,
			Recovery:     recovery,
			ExpiryHeight: expiryHeight,
			Balances:     make(map[core.Address]decimal.Decimal),
			Payments:     []core.Payment{},
		})
	})
	if err != nil {
		return err
	}

	log.Infof("Initialized account %v (creator=%v, expiry=%d)",
		address, creator, expiryHeight)

	return nil
}

// RecordPayment adds amount of asset to the account's balance.
func (s *AccountService) RecordPayment(ctx context.Context, address core.Address,
	amount decimal.Decimal, asset core.Address) error {

	if amount.Sign() <= 0 || !amount.IsInteger() {
		return fmt.Errorf("%w: %v", core.ErrInvalidAmount, amount)
	}

	var event core.PaymentRecorded
	err := s.ledger.Update(ctx, func(tx ports.Tx) error {
		height := s.chain.Height()
		acct, err := s.active(tx, address, height)
		if err != nil {
			return err
		}

		balance, seen := acct.Balances[asset]
		if !seen && len(acct.Balances) >= s.maxAssets {
			return fmt.Errorf("%w: limit is %d", core.ErrTooManyAssets, s.maxAssets)
		}

		acct.Balances[asset] = balance.Add(amount)
		acct.Payments = append(acct.Payments, core.Payment{
			Asset:  asset,
			Amount: amount,
			Height: height,
		})

		event = core.PaymentRecorded{
			Account:      address,
			Asset:        asset,
			Amount:       amount,
			PaymentCount: acct.PaymentCount(),
			Height:       height,
		}

		return putJSON(tx, accountKey(address), acct)
	})
	if err != nil {
		return err
	}

	log.Debugf("Recorded payment of %v %v into %v", amount, asset, address)

	if err := s.eventPub.PublishPaymentRecorded(ctx, event); err != nil {
		// The payment is committed, a lost notification is not fatal.
		log.Warnf("Failed to publish payment event for %v: %v", address, err)
	}

	return nil
}

// GetStatus returns the stored status. Accounts that were never initialized
// report StatusUninitialized.
func (s *AccountService) GetStatus(ctx context.Context, address core.Address) (core.AccountStatus, error) {
	status := core.StatusUninitialized
	err := s.ledger.View(ctx, func(tx ports.ReadTx) error {
		acct, err := s.Load(tx, address)
		if err != nil || acct == nil {
			return err
		}
		status = acct.Status
		return nil
	})
	return status, err
}

// IsExpired reports whether the current ledger height has reached the
// account's expiry height.
func (s *AccountService) IsExpired(ctx context.Context, address core.Address) (bool, error) {
	var expired bool
	err := s.ledger.View(ctx, func(tx ports.ReadTx) error {
		acct, err := s.Load(tx, address)
		if err != nil {
			return err
		}
		if acct == nil {
			return core.ErrAccountNotFound
		}
		expired = acct.IsExpired(s.chain.Height())
		return nil
	})
	return expired, err
}

// GetInfo returns the full account record as seen at the current height.
func (s *AccountService) GetInfo(ctx context.Context, address core.Address) (*core.AccountInfo, error) {
	var info *core.AccountInfo
	err := s.ledger.View(ctx, func(tx ports.ReadTx) error {
		acct, err := s.Load(tx, address)
		if err != nil {
			return err
		}
		if acct == nil {
			return core.ErrAccountNotFound
		}

		height := s.chain.Height()
		info = &core.AccountInfo{
			EphemeralAccount: *acct,
			Expired:          acct.IsExpired(height),
			PaymentCount:     acct.PaymentCount(),
			Height:           height,
		}
		return nil
	})
	return info, err
}

// Sweep flips an Active, unexpired account to Swept and returns its balances
// for the caller to transfer. It runs inside the caller's transaction and
// only accepts the configured controller as caller.
func (s *AccountService) Sweep(ctx context.Context, tx ports.Tx, caller, address,
	destination core.Address) (map[core.Address]decimal.Decimal, error) {

	if caller != s.controller {
		return nil, fmt.Errorf("%w: %v may not sweep", core.ErrUnauthorizedCaller, caller)
	}

	acct, err := s.active(tx, address, s.chain.Height())
	if err != nil {
		return nil, err
	}

	acct.Status = core.StatusSwept
	if err := putJSON(tx, accountKey(address), acct); err != nil {
		return nil, err
	}

	balances := make(map[core.Address]decimal.Decimal, len(acct.Balances))
	for asset, amount := range acct.Balances {
		balances[asset] = amount
	}

	log.Debugf("Account %v marked swept towards %v", address, destination)

	return balances, nil
}
