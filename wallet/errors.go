package wallet

import (
	"errors"
	"fmt"

	"github.com/AlexZinkM/tongo-wallet/internal/storage"
)

var (
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrDerivationFailed  = errors.New("shielded key derivation failed")

	ErrNoAccount         = errors.New("no account")
	ErrNoShieldedAccount = errors.New("no shielded account")
	ErrNoKeyMaterial     = errors.New("signing key unavailable")
	ErrAlreadyDeployed   = errors.New("account already deployed")
	ErrNotDeployed       = errors.New("account not deployed")

	ErrAmountOutOfRange    = errors.New("amount out of range")
	ErrInsufficientBalance = errors.New("insufficient spendable balance")
	ErrNothingToRollover   = errors.New("no pending balance to roll over")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrInvalidAddress      = errors.New("invalid shielded address")

	ErrOperationInProgress = errors.New("another operation is in progress")

	// ErrPersistenceUnavailable is the storage layer's own sentinel.
	ErrPersistenceUnavailable = storage.ErrUnavailable
)

// ChainError wraps a rejection or failure reported by the base layer or the shielded
// ledger. TxHash is set once a transaction was submitted, which means the operation
// may still land on chain.
type ChainError struct {
	Op     string
	TxHash string
	Err    error
}

func (e *ChainError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("%s: tx %s: %v", e.Op, e.TxHash, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// IsChainError checks if err is or wraps a ChainError
func IsChainError(err error) bool {
	var ce *ChainError
	return errors.As(err, &ce)
}

func chainError(op, txHash string, err error) error {
	return &ChainError{Op: op, TxHash: txHash, Err: err}
}

func persistenceError(action string, err error) error {
	if errors.Is(err, ErrPersistenceUnavailable) {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return fmt.Errorf("failed to %s: %w: %v", action, ErrPersistenceUnavailable, err)
}
