package crypto

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/ecdsa"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func hexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := ParseFelt(s)
	require.NoError(t, err)
	return v
}

func TestPublicKeyOfOneIsGenerator(t *testing.T) {
	want, ok := new(big.Int).SetString("874739451078007766457464989774322083649278607533249481151382481072868806602", 10)
	require.True(t, ok)
	require.Equal(t, want, PublicKey(big.NewInt(1)))
}

func TestSelector(t *testing.T) {
	require.Equal(t,
		hexInt(t, "0x83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e"),
		Selector("transfer"))
	require.Equal(t,
		hexInt(t, "0x2e4263afad30923c891518314c3c95dbe830a16874e8abc5777a9a20b54c76e"),
		Selector("balanceOf"))
}

func TestShortString(t *testing.T) {
	v, err := ShortString("SN_SEPOLIA")
	require.NoError(t, err)
	require.Equal(t, hexInt(t, "0x534e5f5345504f4c4941"), v)

	_, err = ShortString("this string is definitely longer than 31")
	require.Error(t, err)
}

func TestParseFelt(t *testing.T) {
	v, err := ParseFelt("0x10")
	require.NoError(t, err)
	require.Equal(t, int64(16), v.Int64())

	v, err = ParseFelt("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), v.Int64())

	_, err = ParseFelt(FeltHex(FieldPrime))
	require.ErrorIs(t, err, ErrInvalidFelt)

	_, err = ParseFelt("0xzz")
	require.ErrorIs(t, err, ErrInvalidFelt)
}

func TestPedersen(t *testing.T) {
	got := Pedersen(
		hexInt(t, "0x03d937c035c878245caf64531a5756109c53068da139362728feb561405371cb"),
		hexInt(t, "0x0208a0a10250e382e1e4bbe2880906c2791bf6275695e02fbbc6aeff9cd8b31a"),
	)
	require.Equal(t, hexInt(t, "0x030e480bed5fe53fa909cc0f8c4d99b8f9f2c016be4c41e13a4848797979c662"), got)
}

func TestCompressRoundTrip(t *testing.T) {
	for _, k := range []int64{1, 2, 3, 7, 1234567, 987654321} {
		p := PublicPoint(big.NewInt(k))

		addr := EncodeAddress(&p)
		got, err := DecodeAddress(addr)
		require.NoError(t, err)
		require.True(t, got.Equal(&p), "key %d", k)
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("not-base58!!")
	require.ErrorIs(t, err, ErrInvalidPoint)

	_, err = DecodeAddress("")
	require.ErrorIs(t, err, ErrInvalidPoint)

	// wrong length
	_, err = DecodeAddress(base58.Encode([]byte{0x02, 0x01, 0x02}))
	require.ErrorIs(t, err, ErrInvalidPoint)

	// uncompressed prefix is not accepted
	p := PublicPoint(big.NewInt(5))
	raw := CompressPoint(&p)
	raw[0] = 0x04
	_, err = DecodeAddress(base58.Encode(raw))
	require.ErrorIs(t, err, ErrInvalidPoint)
}

func TestGrindKeyDeterministic(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")

	a, err := GrindKey(seed)
	require.NoError(t, err)
	b, err := GrindKey(seed)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NoError(t, ValidatePrivateKey(a))

	c, err := GrindKey([]byte("another seed of thirty two bytes"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestContractAddressInRange(t *testing.T) {
	classHash := hexInt(t, "0x540d7f5ec7ecf317e68d48564934cb99259781b1ee3cedbbc37ec5337f8e688")
	pub := PublicKey(big.NewInt(99))

	a := ContractAddress(pub, classHash, []*big.Int{pub}, big.NewInt(0))
	b := ContractAddress(pub, classHash, []*big.Int{pub}, big.NewInt(0))
	require.Equal(t, a, b)
	require.Equal(t, -1, a.Cmp(addressBound))

	other := ContractAddress(PublicKey(big.NewInt(100)), classHash, []*big.Int{PublicKey(big.NewInt(100))}, big.NewInt(0))
	require.NotEqual(t, a, other)
}

func TestSignVerify(t *testing.T) {
	priv := hexInt(t, "0x3c1e9550e66958296d11b60f8e8e7a7ad990d07fa65d5f7652c4a6c87d4e3cc")
	msg := hexInt(t, "0x6fcff244f63e38b9d88b9e3378d44757710d1b244282b435cb472053c8d78d0")
	pub := PublicKey(priv)

	r, s, err := Sign(priv, msg)
	require.NoError(t, err)

	r2, s2, err := Sign(priv, msg)
	require.NoError(t, err)
	require.Equal(t, r, r2)
	require.Equal(t, s, s2)

	ok, err := Verify(pub, msg, r, s)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(pub, new(big.Int).Add(msg, big.NewInt(1)), r, s)
	require.NoError(t, err)
	require.False(t, ok)

	// Cross-check against the library verifier with the full point.
	point := PublicPoint(priv)
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	digest := make([]byte, 32)
	msg.FillBytes(digest)
	key := ecdsa.PublicKey{A: point}
	ok, err = key.Verify(sig, digest, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignRejectsBadKey(t *testing.T) {
	_, _, err := Sign(big.NewInt(0), big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, _, err = Sign(CurveOrder, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestSignKnownAnswers(t *testing.T) {
	for name, tc := range map[string]struct {
		priv, msg, r, s string
	}{
		// signature_test_data vector shared by the Starkware and starknet.js signers
		"starkware": {
			priv: "0x3b162d58804dbfd3b0459e2fcf4d787d79fabbafdc2122761ad472cbf91191",
			msg:  "0x5ed2703dfdb505c587700ce2ebfcab5b3515cd7e6114817e6026ec9d4b364ca",
			r:    "0x157efe892f61628c638510f66cd1c2201d82aff054c77af483c985a4e063aad",
			s:    "0x100b929330239de2cf9ffb5332f18448bbb1f30c2cd0c0a91d46187833c3cfb",
		},
		// first nonce block starts with a zero byte
		"short nonce": {
			priv: "0x111111111111111111111111111111111111111111111111111111111111111",
			msg:  "0x45000000000000000000000000000000000000000000000000000000045",
			r:    "0x715cf795e6a66f5a8875910eecf5d37cc57baa1f5668f3d440e93ba20af4369",
			s:    "0x33273efd601267bd0b756bbb41af49fb1d474b50ea0a2079666c352e6c43a27",
		},
	} {
		t.Run(name, func(t *testing.T) {
			r, s, err := Sign(hexInt(t, tc.priv), hexInt(t, tc.msg))
			require.NoError(t, err)
			require.Equal(t, hexInt(t, tc.r), r)
			require.Equal(t, hexInt(t, tc.s), s)
		})
	}

	require.Equal(t,
		hexInt(t, "0x43ad8702e7ea0380ff1d577356066bd75266dfeed3062504eb1452a3f350f65"),
		PublicKey(hexInt(t, "0x3b162d58804dbfd3b0459e2fcf4d787d79fabbafdc2122761ad472cbf91191")))
}

func TestVerifyKnownSignatures(t *testing.T) {
	for _, tc := range []struct {
		pub, msg, r, s string
	}{
		{
			pub: "0x033f45f07e1bd1a51b45fc24ec8c8c9908db9e42191be9e169bfcac0c0d99745",
			msg: "0x7f15c38ea577a26f4f553282fcfe4f1feeb8ecfaad8f221ae41abf8224cbddd",
			r:   "0x56f769b850641120707a04ff5875ec8e30bdc7ff72e1d24dcd8d86237a16a07",
			s:   "0x79ab23b1cc88bf3d30fa9979b57f0d97393f5c4d5efab065649b7315518bad9",
		},
		{
			pub: "0x4e52f2f40700e9cdd0f386c31a1f160d0f310504fc508a1051b747a26070d10",
			msg: "0x324df642fcc7d98b1d9941250840704f35b9ac2e3e2b58b6a034cc09adac54c",
			r:   "0x64ca24949d64514568c6b67034fee1829fcba49333cd77d586fca524fa900d7",
			s:   "0x6fa6cf0cfa2c49e048e916bbdad7f249892ec8e483e90b202e249f6163445a7",
		},
	} {
		ok, err := Verify(hexInt(t, tc.pub), hexInt(t, tc.msg), hexInt(t, tc.r), hexInt(t, tc.s))
		require.NoError(t, err)
		require.True(t, ok, tc.msg)
	}
}
