// Package transfer implements the asset transfer service on top of the ledger.
package transfer

import (
	"context"
	"fmt"

	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/shopspring/decimal"
)

var balancePrefix = []byte("balance/")

// LedgerTransfer keeps one balance per (asset, owner) in the ledger and
// moves them inside the caller's transaction.
type LedgerTransfer struct{}

// NewLedgerTransfer creates a ledger-backed asset transfer service.
func NewLedgerTransfer() *LedgerTransfer {
	return &LedgerTransfer{}
}

var _ ports.AssetTransfer = (*LedgerTransfer)(nil)

func balanceKey(asset, owner core.Address) []byte {
	key := make([]byte, 0, len(balancePrefix)+2*core.AddressLength+1)
	key = append(key, balancePrefix...)
	key = append(key, asset[:]...)
	key = append(key, '/')
	key = append(key, owner[:]...)
	return key
}

// Balance returns the owner's balance of asset, zero if none was recorded.
func (l *LedgerTransfer) Balance(ctx context.Context, tx ports.ReadTx,
	owner, asset core.Address) (decimal.Decimal, error) {

	v, err := tx.Get(balanceKey(asset, owner))
	if err != nil {
		return decimal.Zero, err
	}
	if v == nil {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(string(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance for %v/%v: %w",
			asset, owner, err)
	}
	return amount, nil
}

func (l *LedgerTransfer) setBalance(tx ports.Tx, owner, asset core.Address,
	amount decimal.Decimal) error {

	key := balanceKey(asset, owner)
	if amount.IsZero() {
		return tx.Delete(key)
	}
	return tx.Put(key, []byte(amount.String()))
}

// Transfer atomically debits from and credits to. It fails with
// core.ErrInsufficientBalance without writing anything if from cannot cover
// amount.
func (l *LedgerTransfer) Transfer(ctx context.Context, tx ports.Tx,
	from, to, asset core.Address, amount decimal.Decimal) error {

	if amount.Sign() <= 0 {
		return core.ErrInvalidAmount
	}

	fromBalance, err := l.Balance(ctx, tx, from, asset)
	if err != nil {
		return err
	}
	if fromBalance.LessThan(amount) {
		return fmt.Errorf("%w: %v holds %v of %v, need %v",
			core.ErrInsufficientBalance, from, fromBalance, asset, amount)
	}
	if from == to {
		return nil
	}

	toBalance, err := l.Balance(ctx, tx, to, asset)
	if err != nil {
		return err
	}

	if err := l.setBalance(tx, from, asset, fromBalance.Sub(amount)); err != nil {
		return err
	}
	return l.setBalance(tx, to, asset, toBalance.Add(amount))
}

// Mint credits amount of asset to owner. It stands in for deposits arriving
// from outside the ledger.
func (l *LedgerTransfer) Mint(ctx context.Context, tx ports.Tx, owner,
	asset core.Address, amount decimal.Decimal) error {

	if amount.Sign() <= 0 || !amount.IsInteger() {
		return core.ErrInvalidAmount
	}

	balance, err := l.Balance(ctx, tx, owner, asset)
	if err != nil {
		return err
	}
	return l.setBalance(tx, owner, asset, balance.Add(amount))
}
