package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/AlexZinkM/tongo-wallet/internal/crypto"
)

// Signer signs typed data on behalf of a base-layer account
type Signer interface {
	SignTypedData(ctx context.Context, td *crypto.TypedData) ([]*big.Int, error)
}

// keySigner signs locally with the account's own key, producing [r, s]
type keySigner struct {
	account *big.Int
	key     *big.Int
}

// NewKeySigner returns a deterministic signer for the account owned by key
func NewKeySigner(account, key *big.Int) Signer {
	return &keySigner{account: account, key: key}
}

func (s *keySigner) SignTypedData(_ context.Context, td *crypto.TypedData) ([]*big.Int, error) {
	hash, err := td.MessageHash(s.account)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	r, sig, err := crypto.Sign(s.key, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	ok, err := crypto.Verify(crypto.PublicKey(s.key), hash, r, sig)
	if err != nil || !ok {
		return nil, fmt.Errorf("failed to sign typed data: %w", crypto.ErrInvalidSignature)
	}
	return []*big.Int{r, sig}, nil
}
