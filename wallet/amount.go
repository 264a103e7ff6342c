package wallet

import (
	"fmt"
	"math"
	"math/big"
)

// MaxAmount is the largest value a shielded balance field can hold.
const MaxAmount = math.MaxUint32

var maxAmount = big.NewInt(MaxAmount)

// CheckAmount enforces 0 <= amount <= 2^32-1.
func CheckAmount(amount *big.Int) (uint32, error) {
	if amount == nil {
		return 0, fmt.Errorf("%w: missing amount", ErrAmountOutOfRange)
	}
	if amount.Sign() < 0 || amount.Cmp(maxAmount) > 0 {
		return 0, fmt.Errorf("%w: %s not in [0, %d]", ErrAmountOutOfRange, amount, uint64(MaxAmount))
	}
	return uint32(amount.Uint64()), nil
}
