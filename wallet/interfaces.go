package wallet

import (
	"context"
	"math/big"

	"github.com/AlexZinkM/tongo-wallet/internal/model"
)

// Chain is the base-layer execution client
type Chain interface {
	DeployAccount(ctx context.Context, creds model.AccountCredentials, classHash, salt string, calldata []string) (*model.Submission, error)
	Execute(ctx context.Context, creds model.AccountCredentials, calls []model.Call) (*model.Submission, error)
	WaitForTransaction(ctx context.Context, txHash string) (*model.Receipt, error)
	// ClassHashAt returns model.ErrContractNotFound when nothing is deployed at address.
	ClassHashAt(ctx context.Context, address string) (string, error)
	ERC20Balance(ctx context.Context, token, owner string) (*big.Int, error)
}

// Ledger is one shielded account inside the ledger contract. Operations only prepare
// calls, the orchestrator submits them.
type Ledger interface {
	Address() string
	Fund(ctx context.Context, amount uint32) (*model.LedgerOperation, error)
	Transfer(ctx context.Context, to string, amount uint32) (*model.LedgerOperation, error)
	Rollover(ctx context.Context) (*model.LedgerOperation, error)
	Withdraw(ctx context.Context, to string, amount uint32) (*model.LedgerOperation, error)
	Ragequit(ctx context.Context, to string) (*model.LedgerOperation, error)
	State(ctx context.Context) (*model.LedgerState, error)
	Rate(ctx context.Context) (*big.Int, error)
}

// LedgerFactory opens the shielded account of key, operated by owner
type LedgerFactory func(owner model.AccountCredentials, key *big.Int) (Ledger, error)

// PriceSource quotes one STRK in a fiat currency
type PriceSource interface {
	STRKPrice(ctx context.Context, currency string) (string, error)
}
