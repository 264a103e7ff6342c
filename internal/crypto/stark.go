package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/mr-tron/base58"
)

const compressedPointLen = 33

var (
	ErrInvalidPrivateKey = errors.New("invalid stark private key")
	ErrInvalidPoint      = errors.New("invalid stark curve point")

	contractAddressPrefix, _ = ShortString("STARKNET_CONTRACT_ADDRESS")
	// 2^251 - 256
	addressBound = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 251), big.NewInt(256))
)

// ValidatePrivateKey reports whether k is a usable Stark scalar.
func ValidatePrivateKey(k *big.Int) error {
	if k == nil || k.Sign() <= 0 || k.Cmp(CurveOrder) >= 0 {
		return ErrInvalidPrivateKey
	}
	return nil
}

// PublicPoint returns k*G.
func PublicPoint(k *big.Int) starkcurve.G1Affine {
	var p starkcurve.G1Affine
	p.ScalarMultiplicationBase(k)
	return p
}

// PublicKey returns the x coordinate of k*G, which is the Starknet account public key.
func PublicKey(k *big.Int) *big.Int {
	p := PublicPoint(k)
	return p.X.BigInt(new(big.Int))
}

// GrindKey maps arbitrary key material (e.g. a BIP32 child key) into [1, order) without
// modulo bias: sha256(seed || i) is retried until it falls under the largest multiple of
// the order that fits in 256 bits.
func GrindKey(seed []byte) (*big.Int, error) {
	two256 := new(big.Int).Lsh(big.NewInt(1), 256)
	limit := new(big.Int).Sub(two256, new(big.Int).Mod(two256, CurveOrder))

	buf := make([]byte, len(seed)+1)
	copy(buf, seed)
	defer clear(buf)

	for i := 0; i < 256; i++ {
		buf[len(seed)] = byte(i)
		digest := sha256.Sum256(buf)
		v := new(big.Int).SetBytes(digest[:])
		clear(digest[:])
		if v.Cmp(limit) >= 0 {
			continue
		}
		v.Mod(v, CurveOrder)
		if v.Sign() == 0 {
			continue
		}
		return v, nil
	}
	return nil, errors.New("failed to grind key: no candidate under limit")
}

// ContractAddress computes the address a deploy-account transaction produces.
func ContractAddress(salt, classHash *big.Int, calldata []*big.Int, deployer *big.Int) *big.Int {
	h := PedersenArray(
		contractAddressPrefix,
		deployer,
		salt,
		classHash,
		PedersenArray(calldata...),
	)
	return h.Mod(h, addressBound)
}

// CompressPoint encodes p as 0x02|0x03 followed by the 32-byte x coordinate.
func CompressPoint(p *starkcurve.G1Affine) []byte {
	out := make([]byte, compressedPointLen)
	out[0] = 0x02
	y := p.Y.BigInt(new(big.Int))
	if y.Bit(0) == 1 {
		out[0] = 0x03
	}
	x := p.X.Bytes()
	copy(out[1:], x[:])
	return out
}

// DecompressPoint is the inverse of CompressPoint. The result is checked to lie on the curve.
func DecompressPoint(b []byte) (*starkcurve.G1Affine, error) {
	if len(b) != compressedPointLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoint, compressedPointLen, len(b))
	}
	if b[0] != 0x02 && b[0] != 0x03 {
		return nil, fmt.Errorf("%w: unknown prefix 0x%02x", ErrInvalidPoint, b[0])
	}

	xInt := new(big.Int).SetBytes(b[1:])
	if xInt.Cmp(FieldPrime) >= 0 {
		return nil, fmt.Errorf("%w: x coordinate out of range", ErrInvalidPoint)
	}

	var x, rhs, y fp.Element
	x.SetBigInt(xInt)

	// y^2 = x^3 + a*x + b
	a, bCoeff := starkcurve.CurveCoefficients()
	rhs.Square(&x).Mul(&rhs, &x)
	var ax fp.Element
	ax.Mul(&a, &x)
	rhs.Add(&rhs, &ax).Add(&rhs, &bCoeff)

	if y.Sqrt(&rhs) == nil {
		return nil, fmt.Errorf("%w: x is not on the curve", ErrInvalidPoint)
	}

	wantOdd := b[0] == 0x03
	if (y.BigInt(new(big.Int)).Bit(0) == 1) != wantOdd {
		y.Neg(&y)
	}

	p := &starkcurve.G1Affine{X: x, Y: y}
	if p.IsInfinity() || !p.IsOnCurve() {
		return nil, fmt.Errorf("%w: point not on curve", ErrInvalidPoint)
	}
	return p, nil
}

// EncodeAddress renders a shielded public key as base58 of its compressed form.
func EncodeAddress(p *starkcurve.G1Affine) string {
	return base58.Encode(CompressPoint(p))
}

// DecodeAddress parses a base58 shielded address into its curve point.
func DecodeAddress(s string) (*starkcurve.G1Affine, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidPoint)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return DecompressPoint(raw)
}
