package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/sweeper/adapters/chain"
	"github.com/layer-3/sweeper/adapters/store"
	"github.com/layer-3/sweeper/adapters/transfer"
	"github.com/layer-3/sweeper/codec"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	genesis = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	controllerID = core.Address{0xc0, 0x01}
	creator      = core.Address{0xc4}
	recovery     = core.Address{0x4e}
	destination  = core.Address{0xde, 0x57}
	assetA       = core.Address{0xa0}
	assetB       = core.Address{0xb0}
)

type recordingPublisher struct {
	mu       sync.Mutex
	sweeps   []core.SweepCompleted
	payments []core.PaymentRecorded
}

func (p *recordingPublisher) PublishSweepCompleted(_ context.Context, e core.SweepCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweeps = append(p.sweeps, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentRecorded(_ context.Context, e core.PaymentRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, e)
	return nil
}

type harness struct {
	t   *testing.T
	ctx context.Context

	clock      *clock.TestClock
	chain      ports.Chain
	ledger     ports.Ledger
	transfer   *transfer.LedgerTransfer
	events     *recordingPublisher
	accounts   *AccountService
	controller *SweepController

	signerPub  ed25519.PublicKey
	signerPriv ed25519.PrivateKey
}

// newHarness builds a controller on a fresh memory ledger with one ledger
// closing per second, currently at height 10.
func newHarness(t *testing.T) *harness {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	h := &harness{
		t:          t,
		ctx:        context.Background(),
		clock:      clock.NewTestClock(genesis.Add(10 * time.Second)),
		ledger:     store.NewMemoryStore(),
		transfer:   transfer.NewLedgerTransfer(),
		events:     &recordingPublisher{},
		signerPub:  pub,
		signerPriv: priv,
	}
	h.chain = chain.NewClockChain(h.clock, genesis, time.Second, 0)
	h.accounts = NewAccountService(h.ledger, h.chain, h.events, controllerID, 0)
	h.controller = NewSweepController(
		controllerID, h.ledger, h.chain, h.accounts, h.transfer, h.events,
	)
	return h
}

func (h *harness) advance(ledgers int) {
	h.clock.SetTime(h.clock.Now().Add(time.Duration(ledgers) * time.Second))
}

func (h *harness) initController() {
	require.NoError(h.t, h.controller.Initialize(h.ctx, h.signerPub))
}

// fundedAccount initializes an account expiring 100 ledgers from now, records
// the payments and mints the matching funds on the transfer service.
func (h *harness) fundedAccount(addr core.Address, payments map[core.Address]int64) {
	require.NoError(h.t, h.accounts.Initialize(
		h.ctx, addr, creator, h.chain.Height()+100, recovery,
	))
	for asset, amount := range payments {
		h.mint(addr, asset, amount)
		require.NoError(h.t, h.accounts.RecordPayment(
			h.ctx, addr, decimal.NewFromInt(amount), asset,
		))
	}
}

func (h *harness) mint(owner, asset core.Address, amount int64) {
	require.NoError(h.t, h.ledger.Update(h.ctx, func(tx ports.Tx) error {
		return h.transfer.Mint(h.ctx, tx, owner, asset, decimal.NewFromInt(amount))
	}))
}

func (h *harness) balance(owner, asset core.Address) decimal.Decimal {
	var b decimal.Decimal
	require.NoError(h.t, h.ledger.View(h.ctx, func(tx ports.ReadTx) error {
		var err error
		b, err = h.transfer.Balance(h.ctx, tx, owner, asset)
		return err
	}))
	return b
}

func (h *harness) nonce() uint64 {
	n, err := h.controller.GetSweepNonce(h.ctx)
	require.NoError(h.t, err)
	return n
}

// sign produces the signature the off-chain signer would submit for the
// current controller state.
func (h *harness) sign(dest core.Address) []byte {
	return h.signWith(h.signerPriv, dest, h.nonce(), h.chain.Timestamp())
}

func (h *harness) signWith(key ed25519.PrivateKey, dest core.Address, nonce,
	timestamp uint64) []byte {

	digest := codec.Digest(dest, nonce, controllerID, timestamp)
	return ed25519.Sign(key, digest[:])
}
