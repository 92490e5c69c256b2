package ports

import (
	"context"

	"github.com/layer-3/sweeper/core"
	"github.com/shopspring/decimal"
)

// AssetTransfer moves fungible balances between addresses. Transfers run
// inside the caller's ledger transaction so they commit or roll back with it.
type AssetTransfer interface {
	Transfer(ctx context.Context, tx Tx, from, to, asset core.Address, amount decimal.Decimal) error
	Balance(ctx context.Context, tx ReadTx, owner, asset core.Address) (decimal.Decimal, error)
}
