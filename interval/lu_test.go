package interval

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func ratFromStrings(num, den string) *big.Rat {
	n, ok := new(big.Int).SetString(num, 10)
	if !ok {
		panic("bad numerator " + num)
	}
	d, ok := new(big.Int).SetString(den, 10)
	if !ok {
		panic("bad denominator " + den)
	}
	return new(big.Rat).SetFrac(n, d)
}

// TestBigInverse is a hand-checked arbitrary-precision regression oracle:
// the exact inverse of a 4x4 rational matrix with 14-digit numerators.
func TestBigInverse(t *testing.T) {
	a := NewRatMatrix(4)
	set := func(i, j int, num, den string) {
		a.Rows[i][j] = ratFromStrings(num, den)
	}
	set(0, 0, "-14441", "14400")
	set(0, 1, "1", "720")
	set(0, 2, "1", "14400")
	set(0, 3, "1", "721")

	set(1, 0, "1", "720")
	set(1, 1, "-73", "720")
	set(1, 2, "1", "20")
	set(1, 3, "1", "20")

	set(2, 0, "1", "14400")
	set(2, 1, "1", "20")
	set(2, 2, "-1441", "14400")
	set(2, 3, "1", "20")

	set(3, 0, "1", "720")
	set(3, 1, "1", "20")
	set(3, 2, "1", "20")
	set(3, 3, "-73", "720")

	inv, err := Invert(a)
	require.NoError(t, err)

	expected := NewRatMatrix(4)
	esets := func(i, j int, num, den string) {
		expected.Rows[i][j] = ratFromStrings(num, den)
	}
	esets(0, 0, "-519120", "519121")
	esets(0, 1, "-83518673040", "83574847153")
	esets(0, 2, "-766221840", "766741717")
	esets(0, 3, "-83517609600", "83574847153")

	esets(1, 0, "-519120", "519121")
	esets(1, 1, "-4244737082400", "11939263879")
	esets(1, 2, "-38554078320", "109534531")
	esets(1, 3, "-4165872068160", "11939263879")

	esets(2, 0, "-519120", "519121")
	esets(2, 1, "-29416762250640", "83574847153")
	esets(2, 2, "-277353890640", "766741717")
	esets(2, 3, "-29416761187200", "83574847153")

	esets(3, 0, "-519120", "519121")
	esets(3, 1, "-4165872220080", "11939263879")
	esets(3, 2, "-38554078320", "109534531")
	esets(3, 3, "-4244736930480", "11939263879")

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			require.Truef(t, inv.Rows[i][j].Cmp(expected.Rows[i][j]) == 0,
				"mismatch at [%d][%d]: got %s want %s", i, j, inv.Rows[i][j].RatString(), expected.Rows[i][j].RatString())
		}
	}
}

// TestLUInverseIdentityRoundTrip: for any invertible rational matrix A,
// A * inv(A) = I exactly.
func TestLUInverseIdentityRoundTrip(t *testing.T) {
	a, err := RatMatrixFromInts([][]int64{
		{2, 0, 0},
		{1, 3, 0},
		{0, -1, 5},
	})
	require.NoError(t, err)

	inv, err := Invert(a)
	require.NoError(t, err)

	product := Mul(a, inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := int64(0)
			if i == j {
				want = 1
			}
			require.Equalf(t, 0, product.Rows[i][j].Cmp(new(big.Rat).SetInt64(want)),
				"identity mismatch at [%d][%d]: got %s", i, j, product.Rows[i][j].RatString())
		}
	}
}

func TestLUDegenerateMatrixError(t *testing.T) {
	a, err := RatMatrixFromInts([][]int64{
		{1, 2},
		{2, 4},
	})
	require.NoError(t, err)

	_, err = Invert(a)
	require.Error(t, err)
	luErr, ok := err.(*LUError)
	require.True(t, ok)
	require.Equal(t, MatrixDegenerate, luErr.Kind)
}
