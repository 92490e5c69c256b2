package sweeper

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/sweeper/codec"
	"github.com/layer-3/sweeper/core"
	"github.com/shopspring/decimal"
)

// maxResponseSize bounds the body read from the daemon.
const maxResponseSize = 1 << 20

// HTTPClient talks to a sweeper daemon over its HTTP API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithOperatorToken sets the bearer token sent on operator endpoints.
func WithOperatorToken(token string) ClientOption {
	return func(c *HTTPClient) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) do(ctx context.Context, method, path string, operator bool,
	body, out interface{}) error {

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if operator {
		if c.token == "" {
			return ErrNoOperatorToken
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
			Code  uint32 `json:"code"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErr.Error,
			Code:       apiErr.Code,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func accountPath(address core.Address, suffix string) string {
	return "/accounts/" + address.String() + suffix
}

// Controller returns the controller identity and current state.
func (c *HTTPClient) Controller(ctx context.Context) (*ControllerInfo, error) {
	var info ControllerInfo
	if err := c.do(ctx, http.MethodGet, "/controller", false, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// InitializeController sets the authorized signer.
func (c *HTTPClient) InitializeController(ctx context.Context, signer ed25519.PublicKey) error {
	req := struct {
		Signer hexutil.Bytes `json:"signer"`
	}{Signer: hexutil.Bytes(signer)}

	return c.do(ctx, http.MethodPost, "/controller/initialize", true, req, nil)
}

// SweepNonce returns the nonce the next sweep must be signed against.
func (c *HTTPClient) SweepNonce(ctx context.Context) (uint64, error) {
	var resp struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := c.do(ctx, http.MethodGet, "/controller/nonce", false, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// SweepParams returns the current controller identity, nonce and ledger
// clock.
func (c *HTTPClient) SweepParams(ctx context.Context) (*SweepParams, error) {
	var params SweepParams
	err := c.do(ctx, http.MethodGet, "/controller/sweep-params", false, nil, &params)
	if err != nil {
		return nil, err
	}
	return &params, nil
}

// SweepDigest returns the digest to sign for a sweep to destination. It is
// valid only until the current ledger closes or another sweep consumes the
// nonce.
func (c *HTTPClient) SweepDigest(ctx context.Context, destination core.Address) (
	[codec.DigestSize]byte, *SweepParams, error) {

	params, err := c.SweepParams(ctx)
	if err != nil {
		return [codec.DigestSize]byte{}, nil, err
	}
	if !params.Initialized {
		return [codec.DigestSize]byte{}, nil, core.ErrAuthorizedSignerNotSet
	}

	digest := codec.Digest(destination, params.Nonce, params.Controller, params.Timestamp)
	return digest, params, nil
}

// InitializeAccount activates a new ephemeral account.
func (c *HTTPClient) InitializeAccount(ctx context.Context, address, creator core.Address,
	expiryHeight uint64, recovery core.Address) (*core.AccountInfo, error) {

	req := struct {
		Address      core.Address `json:"address"`
		Creator      core.Address `json:"creator"`
		ExpiryHeight uint64       `json:"expiry_height"`
		Recovery     core.Address `json:"recovery"`
	}{address, creator, expiryHeight, recovery}

	var info core.AccountInfo
	if err := c.do(ctx, http.MethodPost, "/accounts", true, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Account returns the full account record.
func (c *HTTPClient) Account(ctx context.Context, address core.Address) (*core.AccountInfo, error) {
	var info core.AccountInfo
	if err := c.do(ctx, http.MethodGet, accountPath(address, ""), false, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AccountStatus returns the stored status and expiry of an account.
func (c *HTTPClient) AccountStatus(ctx context.Context, address core.Address) (*AccountStatus, error) {
	var status AccountStatus
	err := c.do(ctx, http.MethodGet, accountPath(address, "/status"), false, nil, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// RecordPayment credits a payment to an account's recorded balance.
func (c *HTTPClient) RecordPayment(ctx context.Context, address, asset core.Address,
	amount decimal.Decimal) (*core.AccountInfo, error) {

	req := struct {
		Asset  core.Address    `json:"asset"`
		Amount decimal.Decimal `json:"amount"`
	}{asset, amount}

	var info core.AccountInfo
	err := c.do(ctx, http.MethodPost, accountPath(address, "/payments"), true, req, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// CanSweep reports whether an account is Active and holds funds.
func (c *HTTPClient) CanSweep(ctx context.Context, address core.Address) (bool, error) {
	var resp struct {
		CanSweep bool `json:"can_sweep"`
	}
	err := c.do(ctx, http.MethodGet, accountPath(address, "/can-sweep"), false, nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.CanSweep, nil
}

// ExecuteSweep submits a signed sweep.
func (c *HTTPClient) ExecuteSweep(ctx context.Context, address, destination core.Address,
	signature []byte) (*core.SweepCompleted, error) {

	req := struct {
		Destination core.Address  `json:"destination"`
		Signature   hexutil.Bytes `json:"signature"`
	}{destination, signature}

	var completed core.SweepCompleted
	err := c.do(ctx, http.MethodPost, accountPath(address, "/sweep"), false, req, &completed)
	if err != nil {
		return nil, err
	}
	return &completed, nil
}

// SweepRecord returns the record of a completed sweep, or ErrNotSwept.
func (c *HTTPClient) SweepRecord(ctx context.Context, address core.Address) (*core.SweepCompleted, error) {
	var record core.SweepCompleted
	err := c.do(ctx, http.MethodGet, accountPath(address, "/sweep"), false, nil, &record)

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && apiErr.Code == 0:
		return nil, ErrNotSwept
	case err != nil:
		return nil, err
	}
	return &record, nil
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// Deposit credits amount of asset to owner and returns the new balance.
func (c *HTTPClient) Deposit(ctx context.Context, asset, owner core.Address,
	amount decimal.Decimal) (decimal.Decimal, error) {

	req := struct {
		Owner  core.Address    `json:"owner"`
		Amount decimal.Decimal `json:"amount"`
	}{owner, amount}

	var resp balanceResponse
	err := c.do(ctx, http.MethodPost, "/assets/"+asset.String()+"/deposits", true, req, &resp)
	if err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

// Balance returns an owner's balance of an asset.
func (c *HTTPClient) Balance(ctx context.Context, asset, owner core.Address) (decimal.Decimal, error) {
	var resp balanceResponse
	path := "/assets/" + asset.String() + "/balances/" + owner.String()
	if err := c.do(ctx, http.MethodGet, path, false, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

// Ed25519Signer signs sweep digests with a local key.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewEd25519Signer creates a signer for key.
func NewEd25519Signer(key ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{key: key}
}

// SignDigest implements Signer.
func (s *Ed25519Signer) SignDigest(digest [codec.DigestSize]byte) ([]byte, error) {
	if len(s.key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key has %d bytes", len(s.key))
	}
	return ed25519.Sign(s.key, digest[:]), nil
}

// Sweep builds, signs and submits a sweep of account to destination in one
// go. A ledger close between the digest fetch and the submission makes the
// signature stale; callers may retry on core.ErrSignatureVerificationFailed.
func Sweep(ctx context.Context, client Client, signer Signer, account,
	destination core.Address) (*core.SweepCompleted, error) {

	digest, _, err := client.SweepDigest(ctx, destination)
	if err != nil {
		return nil, err
	}

	sig, err := signer.SignDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign sweep digest: %w", err)
	}

	return client.ExecuteSweep(ctx, account, destination, sig)
}
