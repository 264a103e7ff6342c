package common

import (
	"fmt"
	"math/big"
	"strings"
)

// STRKDecimals is the number of decimals of the STRK token (fri)
const STRKDecimals = 18

// FriToSTRK converts fri to a STRK string without float precision loss
func FriToSTRK(fri *big.Int) string {
	return FormatUnits(fri, STRKDecimals)
}

// FormatUnits converts an integer amount to a decimal string by inserting a decimal point.
// Trailing fractional zeros are dropped.
// Example: FormatUnits(24981836, 9) = "0.024981836"
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	neg := value.Sign() < 0
	s := new(big.Int).Abs(value).String()

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	pos := len(s) - decimals
	whole, frac := s[:pos], strings.TrimRight(s[pos:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseAmount parses a base-10 integer amount. Sign and size are not checked here.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: must be an integer", s)
	}
	return v, nil
}
