package client

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// BridgeClient talks to the local ledger SDK sidecar. The sidecar builds the
// zero-knowledge proofs for shielded operations and signs/submits base-layer
// transactions, so it receives key material and must only ever listen on loopback.
type BridgeClient struct {
	rpc jsonrpc.RPCClient
}

// NewBridgeClient creates a bridge client. Non-loopback endpoints are refused.
func NewBridgeClient(bridgeURL string) (*BridgeClient, error) {
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge url: %w", err)
	}
	if !isLoopback(u.Hostname()) {
		return nil, fmt.Errorf("bridge url %s is not a loopback address", bridgeURL)
	}

	return &BridgeClient{
		rpc: jsonrpc.NewClientWithOpts(bridgeURL, &jsonrpc.RPCClientOpts{
			// proof generation is slow
			HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		}),
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type deployAccountRequest struct {
	Account   model.AccountCredentials `json:"account"`
	ClassHash string                   `json:"classHash"`
	Salt      string                   `json:"salt"`
	Calldata  []string                 `json:"calldata"`
}

// DeployAccount signs and submits a deploy-account transaction
func (b *BridgeClient) DeployAccount(ctx context.Context, creds model.AccountCredentials, classHash, salt string, calldata []string) (*model.Submission, error) {
	var sub model.Submission
	req := deployAccountRequest{Account: creds, ClassHash: classHash, Salt: salt, Calldata: calldata}
	if err := b.rpc.CallForInto(ctx, &sub, "account_deploy", []interface{}{req}); err != nil {
		return nil, fmt.Errorf("failed to deploy account: %w", err)
	}
	return &sub, nil
}

type executeRequest struct {
	Account model.AccountCredentials `json:"account"`
	Calls   []model.Call             `json:"calls"`
}

// Execute signs and submits calls as one multicall invoke transaction
func (b *BridgeClient) Execute(ctx context.Context, creds model.AccountCredentials, calls []model.Call) (*model.Submission, error) {
	var sub model.Submission
	if err := b.rpc.CallForInto(ctx, &sub, "account_execute", []interface{}{executeRequest{Account: creds, Calls: calls}}); err != nil {
		return nil, fmt.Errorf("failed to execute calls: %w", err)
	}
	return &sub, nil
}

// Ledger returns a handle on the shielded account of key inside contract, operated
// by the base-layer account owner.
func (b *BridgeClient) Ledger(contract string, owner model.AccountCredentials, key *big.Int) *BridgeLedger {
	point := crypto.PublicPoint(key)
	return &BridgeLedger{
		bridge:   b,
		contract: contract,
		owner:    owner,
		key:      crypto.FeltHex(key),
		address:  crypto.EncodeAddress(&point),
	}
}

// BridgeLedger is one shielded account as seen through the bridge
type BridgeLedger struct {
	bridge   *BridgeClient
	contract string
	owner    model.AccountCredentials
	key      string
	address  string
}

type ledgerRequest struct {
	Contract   string `json:"contract"`
	Owner      string `json:"owner"`
	PrivateKey string `json:"privateKey"`
	Amount     *int64 `json:"amount,omitempty"`
	To         string `json:"to,omitempty"`
}

func (l *BridgeLedger) request() ledgerRequest {
	return ledgerRequest{Contract: l.contract, Owner: l.owner.Address, PrivateKey: l.key}
}

func (l *BridgeLedger) operation(ctx context.Context, method string, req ledgerRequest) (*model.LedgerOperation, error) {
	var op model.LedgerOperation
	if err := l.bridge.rpc.CallForInto(ctx, &op, method, []interface{}{req}); err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", method, err)
	}
	if op.Call.To == "" {
		return nil, fmt.Errorf("bridge returned empty call for %s", method)
	}
	return &op, nil
}

func amountParam(amount uint32) *int64 {
	v := int64(amount)
	return &v
}

// Address is the base58 shielded public key
func (l *BridgeLedger) Address() string {
	return l.address
}

// Fund prepares a deposit from the owner's public balance, approval included
func (l *BridgeLedger) Fund(ctx context.Context, amount uint32) (*model.LedgerOperation, error) {
	req := l.request()
	req.Amount = amountParam(amount)
	return l.operation(ctx, "tongo_fund", req)
}

// Transfer prepares a confidential transfer to the shielded address to
func (l *BridgeLedger) Transfer(ctx context.Context, to string, amount uint32) (*model.LedgerOperation, error) {
	req := l.request()
	req.Amount = amountParam(amount)
	req.To = to
	return l.operation(ctx, "tongo_transfer", req)
}

// Rollover prepares moving the pending balance into the spendable one
func (l *BridgeLedger) Rollover(ctx context.Context) (*model.LedgerOperation, error) {
	return l.operation(ctx, "tongo_rollover", l.request())
}

// Withdraw prepares a withdrawal to the base-layer address to
func (l *BridgeLedger) Withdraw(ctx context.Context, to string, amount uint32) (*model.LedgerOperation, error) {
	req := l.request()
	req.Amount = amountParam(amount)
	req.To = to
	return l.operation(ctx, "tongo_withdraw", req)
}

// Ragequit prepares an exit of the whole position to the base-layer address to
func (l *BridgeLedger) Ragequit(ctx context.Context, to string) (*model.LedgerOperation, error) {
	req := l.request()
	req.To = to
	return l.operation(ctx, "tongo_ragequit", req)
}

// State reads the decrypted balance, pending balance and nonce
func (l *BridgeLedger) State(ctx context.Context) (*model.LedgerState, error) {
	var state model.LedgerState
	if err := l.bridge.rpc.CallForInto(ctx, &state, "tongo_state", []interface{}{l.request()}); err != nil {
		return nil, fmt.Errorf("failed to read ledger state: %w", err)
	}
	return &state, nil
}

// Rate returns how many base units of the public token one ledger unit is worth
func (l *BridgeLedger) Rate(ctx context.Context) (*big.Int, error) {
	var raw string
	req := ledgerRequest{Contract: l.contract}
	if err := l.bridge.rpc.CallForInto(ctx, &raw, "tongo_rate", []interface{}{req}); err != nil {
		return nil, fmt.Errorf("failed to read rate: %w", err)
	}
	rate, err := crypto.ParseFelt(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}
	return rate, nil
}
