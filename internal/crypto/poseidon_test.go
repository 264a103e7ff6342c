package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoseidon(t *testing.T) {
	require.Equal(t,
		hexInt(t, "0x5d44a3decb2b2e0cc71071f7b802f45dd792d064f0fc7316c46514f70f9891a"),
		Poseidon(big.NewInt(1), big.NewInt(2)))
}

func TestPoseidonArray(t *testing.T) {
	for name, tc := range map[string]struct {
		in   []int64
		want string
	}{
		"empty": {nil, "0x2272be0f580fd156823304800919530eaa97430e972d7213ee13f4fbf7a5dbc"},
		"odd":   {[]int64{0, 1, 2}, "0x7a01142da8aecae3782ba66fc3285fd02fcd2c55aa868fe50fd95c089068d16"},
		"even":  {[]int64{0, 1, 2, 3}, "0x7b8f30ac298ea12d170c0873f1fa631a18c00756c6e7d1fd273b9a239d0d413"},
	} {
		t.Run(name, func(t *testing.T) {
			vals := make([]*big.Int, len(tc.in))
			for i, v := range tc.in {
				vals[i] = big.NewInt(v)
			}
			require.Equal(t, hexInt(t, tc.want), PoseidonArray(vals...))
		})
	}
}
