package crypto

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
	"golang.org/x/crypto/sha3"
)

var (
	// FieldPrime is the Starknet field modulus 2^251 + 17*2^192 + 1.
	FieldPrime = fp.Modulus()
	// CurveOrder is the order of the Stark curve generator.
	CurveOrder = fr.Modulus()

	mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))
)

var ErrInvalidFelt = errors.New("invalid field element")

// ParseFelt accepts 0x-prefixed hex or decimal and rejects values outside the field.
func ParseFelt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidFelt)
	}

	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}
	if v.Sign() < 0 || v.Cmp(FieldPrime) >= 0 {
		return nil, fmt.Errorf("%w: %q out of range", ErrInvalidFelt, s)
	}
	return v, nil
}

// FeltHex renders v as a minimal 0x-prefixed lowercase hex string.
func FeltHex(v *big.Int) string {
	return "0x" + v.Text(16)
}

// ShortString encodes up to 31 ASCII characters as a felt.
func ShortString(s string) (*big.Int, error) {
	if len(s) > 31 {
		return nil, fmt.Errorf("short string %q longer than 31 characters", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return nil, fmt.Errorf("short string %q is not ASCII", s)
		}
	}
	return new(big.Int).SetBytes([]byte(s)), nil
}

// Keccak250 is keccak256 truncated to the low 250 bits (sn_keccak).
func Keccak250(data []byte) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.And(v, mask250)
}

// Selector returns the entry point selector for a function name.
func Selector(name string) *big.Int {
	return Keccak250([]byte(name))
}

func toElement(v *big.Int) *fp.Element {
	var e fp.Element
	e.SetBigInt(v)
	return &e
}

// Pedersen hashes two felts.
func Pedersen(a, b *big.Int) *big.Int {
	h := pedersenhash.Pedersen(toElement(a), toElement(b))
	return h.BigInt(new(big.Int))
}

// PedersenArray hashes a list of felts, chaining from zero and appending the length.
func PedersenArray(vals ...*big.Int) *big.Int {
	elems := make([]*fp.Element, len(vals))
	for i, v := range vals {
		elems[i] = toElement(v)
	}
	h := pedersenhash.PedersenArray(elems...)
	return h.BigInt(new(big.Int))
}
