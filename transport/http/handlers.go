package http

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/layer-3/sweeper/service"
	"github.com/shopspring/decimal"
)

// AssetLedger is the transfer service as seen by the deposit endpoints.
type AssetLedger interface {
	ports.AssetTransfer

	// Mint credits amount of asset to owner.
	Mint(ctx context.Context, tx ports.Tx, owner, asset core.Address, amount decimal.Decimal) error
}

// Handlers contains HTTP handlers for controller, account and asset
// endpoints
type Handlers struct {
	controller *service.SweepController
	accounts   *service.AccountService
	ledger     ports.Ledger
	assets     AssetLedger
}

// NewHandlers creates new handlers
func NewHandlers(controller *service.SweepController, accounts *service.AccountService,
	ledger ports.Ledger, assets AssetLedger) *Handlers {

	return &Handlers{
		controller: controller,
		accounts:   accounts,
		ledger:     ledger,
		assets:     assets,
	}
}

// pathAddress parses the named path parameter, aborting the request if it
// is not a valid address.
func pathAddress(c *gin.Context, name string) (core.Address, bool) {
	addr, err := core.ParseAddress(c.Param(name))
	if err != nil {
		abortWithError(c, err)
		return core.Address{}, false
	}
	return addr, true
}

// Controller returns the controller identity and state
func (h *Handlers) Controller(c *gin.Context) {
	state, err := h.controller.State(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{
		"controller":  h.controller.Identity(),
		"initialized": state != nil,
		"nonce":       uint64(0),
	}
	if state != nil {
		resp["signer"] = hexutil.Encode(state.AuthorizedSigner[:])
		resp["nonce"] = state.Nonce
	}

	c.JSON(http.StatusOK, resp)
}

// InitializeController sets the authorized signer
func (h *Handlers) InitializeController(c *gin.Context) {
	var req struct {
		Signer hexutil.Bytes `json:"signer" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request")
		return
	}

	if err := h.controller.Initialize(c.Request.Context(), []byte(req.Signer)); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"controller": h.controller.Identity(),
		"signer":     req.Signer,
		"nonce":      uint64(0),
	})
}

// Nonce returns the nonce the next sweep must be signed against
func (h *Handlers) Nonce(c *gin.Context) {
	nonce, err := h.controller.GetSweepNonce(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// SweepParams returns everything an off-chain signer needs to build a
// sweep digest
func (h *Handlers) SweepParams(c *gin.Context) {
	params, err := h.controller.SweepParams(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, params)
}

// InitializeAccount activates a new ephemeral account
func (h *Handlers) InitializeAccount(c *gin.Context) {
	var req struct {
		Address      core.Address `json:"address" binding:"required"`
		Creator      core.Address `json:"creator" binding:"required"`
		ExpiryHeight uint64       `json:"expiry_height" binding:"required"`
		Recovery     core.Address `json:"recovery" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request")
		return
	}

	ctx := c.Request.Context()
	err := h.accounts.Initialize(ctx, req.Address, req.Creator, req.ExpiryHeight, req.Recovery)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if op, ok := c.Get(operatorKey); ok {
		log.Infof("Operator %v created account %v", op.(*core.Operator).Name, req.Address)
	}

	info, err := h.accounts.GetInfo(ctx, req.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// Account returns the full account record
func (h *Handlers) Account(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	info, err := h.accounts.GetInfo(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// AccountStatus returns the stored status and whether the account expired
func (h *Handlers) AccountStatus(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	status, err := h.accounts.GetStatus(ctx, addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// Uninitialized accounts have no expiry height to compare against.
	var expired bool
	if status != core.StatusUninitialized {
		expired, err = h.accounts.IsExpired(ctx, addr)
		if err != nil {
			abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"address": addr,
		"status":  status,
		"expired": expired,
	})
}

// RecordPayment credits a payment to an account's recorded balance
func (h *Handlers) RecordPayment(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	var req struct {
		Asset  core.Address    `json:"asset" binding:"required"`
		Amount decimal.Decimal `json:"amount"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request")
		return
	}

	ctx := c.Request.Context()
	if err := h.accounts.RecordPayment(ctx, addr, req.Amount, req.Asset); err != nil {
		abortWithError(c, err)
		return
	}

	info, err := h.accounts.GetInfo(ctx, addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// CanSweep reports whether the account is sweepable
func (h *Handlers) CanSweep(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	canSweep, err := h.controller.CanSweep(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_sweep": canSweep})
}

// ExecuteSweep sweeps an account to the signed destination. The request is
// authorized by the signature alone.
func (h *Handlers) ExecuteSweep(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	var req struct {
		Destination core.Address  `json:"destination" binding:"required"`
		Signature   hexutil.Bytes `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request")
		return
	}

	completed, err := h.controller.ExecuteSweep(
		c.Request.Context(), addr, req.Destination, req.Signature,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, completed)
}

// SweepRecord returns the persisted record of a completed sweep
func (h *Handlers) SweepRecord(c *gin.Context) {
	addr, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	record, err := h.controller.SweepRecord(c.Request.Context(), addr)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account has not been swept"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Deposit credits assets arriving from outside the ledger to an owner
func (h *Handlers) Deposit(c *gin.Context) {
	asset, ok := pathAddress(c, "asset")
	if !ok {
		return
	}

	var req struct {
		Owner  core.Address    `json:"owner" binding:"required"`
		Amount decimal.Decimal `json:"amount"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request")
		return
	}

	ctx := c.Request.Context()
	var balance decimal.Decimal
	err := h.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := h.assets.Mint(ctx, tx, req.Owner, asset, req.Amount); err != nil {
			return err
		}

		var err error
		balance, err = h.assets.Balance(ctx, tx, req.Owner, asset)
		return err
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owner":   req.Owner,
		"asset":   asset,
		"balance": balance,
	})
}

// Balance returns an owner's balance of an asset
func (h *Handlers) Balance(c *gin.Context) {
	asset, ok := pathAddress(c, "asset")
	if !ok {
		return
	}
	owner, ok := pathAddress(c, "owner")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var balance decimal.Decimal
	err := h.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		balance, err = h.assets.Balance(ctx, tx, owner, asset)
		return err
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owner":   owner,
		"asset":   asset,
		"balance": balance,
	})
}
