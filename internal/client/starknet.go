package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
	"github.com/AlexZinkM/tongo-wallet/internal/model"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

// Starknet JSON-RPC error codes the wallet reacts to.
const (
	rpcCodeContractNotFound = 20
	rpcCodeTxHashNotFound   = 29
)

const blockLatest = "latest"

// StarknetClient is a client for working with Starknet RPC
type StarknetClient struct {
	rpc          jsonrpc.RPCClient
	clock        clock.Clock
	pollInterval time.Duration
	logger       *zap.Logger
}

// StarknetOption tunes a StarknetClient
type StarknetOption func(*StarknetClient)

// WithClock replaces the wall clock used between receipt polls.
func WithClock(c clock.Clock) StarknetOption {
	return func(s *StarknetClient) { s.clock = c }
}

// WithPollInterval sets the delay between receipt polls.
func WithPollInterval(d time.Duration) StarknetOption {
	return func(s *StarknetClient) { s.pollInterval = d }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) StarknetOption {
	return func(s *StarknetClient) { s.logger = l }
}

// NewStarknetClient creates a new Starknet RPC client for rpcURL.
func NewStarknetClient(rpcURL string, opts ...StarknetOption) *StarknetClient {
	c := &StarknetClient{
		rpc: jsonrpc.NewClientWithOpts(rpcURL, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
		}),
		clock:        clock.NewDefaultClock(),
		pollInterval: 5 * time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("starknet")
	return c
}

// ChainID returns the chain id felt reported by the node
func (c *StarknetClient) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := c.rpc.CallForInto(ctx, &id, "starknet_chainId", nil); err != nil {
		return "", fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// ClassHashAt returns the class hash deployed at address, or model.ErrContractNotFound
// when nothing is deployed there.
func (c *StarknetClient) ClassHashAt(ctx context.Context, address string) (string, error) {
	var hash string
	err := c.rpc.CallForInto(ctx, &hash, "starknet_getClassHashAt", []interface{}{blockLatest, address})
	if rpcCode(err) == rpcCodeContractNotFound {
		return "", model.ErrContractNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get class hash at %s: %w", address, err)
	}
	return hash, nil
}

// TransactionReceipt returns the receipt of txHash. found is false while the node
// does not know the transaction yet.
func (c *StarknetClient) TransactionReceipt(ctx context.Context, txHash string) (receipt *model.Receipt, found bool, err error) {
	var r model.Receipt
	err = c.rpc.CallForInto(ctx, &r, "starknet_getTransactionReceipt", []interface{}{txHash})
	if rpcCode(err) == rpcCodeTxHashNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
	}
	return &r, true, nil
}

// WaitForTransaction polls until txHash is accepted on L2 or L1. A reverted
// transaction is returned as an error. Only ctx bounds the wait.
func (c *StarknetClient) WaitForTransaction(ctx context.Context, txHash string) (*model.Receipt, error) {
	for {
		receipt, found, err := c.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if found {
			if receipt.ExecutionStatus == model.ExecutionReverted {
				return receipt, fmt.Errorf("transaction %s reverted: %s", txHash, receipt.RevertReason)
			}
			if receipt.Final() {
				return receipt, nil
			}
			c.logger.Debug("transaction not final yet",
				zap.String("tx_hash", txHash),
				zap.String("finality_status", receipt.FinalityStatus))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for %s: %w", txHash, ctx.Err())
		case <-c.clock.TickAfter(c.pollInterval):
		}
	}
}

type functionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// Call runs a read-only entry point and returns its felts
func (c *StarknetClient) Call(ctx context.Context, call model.Call) ([]string, error) {
	req := functionCall{
		ContractAddress:    call.To,
		EntryPointSelector: call.Selector,
		Calldata:           call.Calldata,
	}
	if req.Calldata == nil {
		req.Calldata = []string{}
	}

	var out []string
	if err := c.rpc.CallForInto(ctx, &out, "starknet_call", []interface{}{req, blockLatest}); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", call.To, err)
	}
	return out, nil
}

// ERC20Balance reads balanceOf(owner) on token as a u256
func (c *StarknetClient) ERC20Balance(ctx context.Context, token, owner string) (*big.Int, error) {
	out, err := c.Call(ctx, model.Call{
		To:       token,
		Selector: crypto.FeltHex(crypto.Selector("balanceOf")),
		Calldata: []string{owner},
	})
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("unexpected balanceOf result length %d", len(out))
	}

	low, err := crypto.ParseFelt(out[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance low: %w", err)
	}
	high, err := crypto.ParseFelt(out[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance high: %w", err)
	}
	return low.Add(low, high.Lsh(high, 128)), nil
}

func rpcCode(err error) int {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}
