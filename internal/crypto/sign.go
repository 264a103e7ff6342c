package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/ecdsa"
)

var ErrInvalidSignature = errors.New("invalid stark signature")

// Sign produces a deterministic ECDSA signature over a felt message hash. The nonce is
// drawn from an RFC 6979 HMAC-SHA256 DRBG, so equal inputs always yield equal signatures.
func Sign(priv, msgHash *big.Int) (r, s *big.Int, err error) {
	if err := ValidatePrivateKey(priv); err != nil {
		return nil, nil, err
	}
	if msgHash.Sign() < 0 || msgHash.Cmp(FieldPrime) >= 0 {
		return nil, nil, fmt.Errorf("%w: message hash out of range", ErrInvalidFelt)
	}

	gen := newNonceGenerator(priv, msgHash)
	defer gen.wipe()

	for i := 0; i < 64; i++ {
		k := gen.next()

		R := PublicPoint(k)
		r = R.X.BigInt(new(big.Int))
		r.Mod(r, CurveOrder)
		if r.Sign() == 0 {
			k.SetInt64(0)
			continue
		}

		// s = k^-1 * (m + r*d) mod n
		s = new(big.Int).Mul(r, priv)
		s.Add(s, msgHash)
		s.Mul(s, new(big.Int).ModInverse(k, CurveOrder))
		s.Mod(s, CurveOrder)
		k.SetInt64(0)
		if s.Sign() == 0 {
			continue
		}
		return r, s, nil
	}
	return nil, nil, errors.New("failed to sign: nonce generation exhausted")
}

// Verify checks (r, s) over msgHash against an x-only Starknet public key.
func Verify(pubKey, msgHash, r, s *big.Int) (bool, error) {
	if r.Sign() <= 0 || r.Cmp(CurveOrder) >= 0 || s.Sign() <= 0 || s.Cmp(CurveOrder) >= 0 {
		return false, ErrInvalidSignature
	}
	pub, err := pointFromX(pubKey)
	if err != nil {
		return false, err
	}

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	msg := make([]byte, 32)
	msgHash.FillBytes(msg)

	// x-only keys leave the sign of y open; try both.
	for _, candidate := range []starkcurve.G1Affine{*pub, *new(starkcurve.G1Affine).Neg(pub)} {
		key := ecdsa.PublicKey{A: candidate}
		ok, err := key.Verify(sig, msg, nil)
		if err != nil {
			return false, fmt.Errorf("failed to verify signature: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func pointFromX(x *big.Int) (*starkcurve.G1Affine, error) {
	if x == nil || x.Sign() <= 0 || x.Cmp(FieldPrime) >= 0 {
		return nil, fmt.Errorf("%w: public key out of range", ErrInvalidPoint)
	}
	buf := make([]byte, compressedPointLen)
	buf[0] = 0x02
	x.FillBytes(buf[1:])
	return DecompressPoint(buf)
}

// nonceGenerator is the HMAC-DRBG of RFC 6979 section 3.2.
type nonceGenerator struct {
	k, v []byte
	mac  func([]byte) hash.Hash
}

func newNonceGenerator(priv, msgHash *big.Int) *nonceGenerator {
	rolen := (CurveOrder.BitLen() + 7) / 8

	x := make([]byte, rolen)
	priv.FillBytes(x)
	defer clear(x)

	h1 := make([]byte, rolen)
	new(big.Int).Mod(msgHash, CurveOrder).FillBytes(h1)

	g := &nonceGenerator{
		k:   make([]byte, sha256.Size),
		v:   make([]byte, sha256.Size),
		mac: func(key []byte) hash.Hash { return hmac.New(sha256.New, key) },
	}
	for i := range g.v {
		g.v[i] = 0x01
	}

	for _, sep := range []byte{0x00, 0x01} {
		m := g.mac(g.k)
		m.Write(g.v)
		m.Write([]byte{sep})
		m.Write(x)
		m.Write(h1)
		g.k = m.Sum(nil)
		g.v = g.hmac(g.v)
	}
	return g
}

func (g *nonceGenerator) hmac(data ...[]byte) []byte {
	m := g.mac(g.k)
	for _, d := range data {
		m.Write(d)
	}
	return m.Sum(nil)
}

// next returns the next candidate k in [1, n).
func (g *nonceGenerator) next() *big.Int {
	qlen := CurveOrder.BitLen()
	for {
		var t []byte
		for len(t)*8 < qlen {
			g.v = g.hmac(g.v)
			t = append(t, g.v...)
		}

		// Leading zero bytes are dropped before truncating to qlen bits, as the
		// JavaScript Stark signers do.
		k := new(big.Int).SetBytes(t)
		if excess := (k.BitLen()+7)/8*8 - qlen; excess > 0 {
			k.Rsh(k, uint(excess))
		}
		clear(t)

		// Advance the state so a caller-rejected k is never repeated.
		g.k = g.hmac(g.v, []byte{0x00})
		g.v = g.hmac(g.v)
		if k.Sign() > 0 && k.Cmp(CurveOrder) < 0 {
			return k
		}
	}
}

func (g *nonceGenerator) wipe() {
	clear(g.k)
	clear(g.v)
}
