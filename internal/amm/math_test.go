package amm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestIntegerSqrt(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	cases := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1),
		uint256.NewInt(2),
		uint256.NewInt(3),
		uint256.NewInt(4),
		uint256.NewInt(15),
		uint256.NewInt(16),
		uint256.NewInt(17),
		uint256.NewInt(999_999),
		uint256.NewInt(1_000_000_000_000),
		new(uint256.Int).Lsh(uint256.NewInt(1), 200),
		new(uint256.Int).SubUint64(max, 1),
		max,
	}
	for _, x := range cases {
		got := IntegerSqrt(x)
		want := new(uint256.Int).Sqrt(x)
		require.Truef(t, got.Eq(want), "sqrt(%s): got %s want %s", x.Dec(), got.Dec(), want.Dec())
	}
}

func TestMulDivRounding(t *testing.T) {
	down, err := mulDiv(uint256.NewInt(10), uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, uint64(33), down.Uint64())

	up, err := mulDivUp(uint256.NewInt(10), uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, uint64(34), up.Uint64())

	exact, err := mulDivUp(uint256.NewInt(10), uint256.NewInt(9), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, uint64(30), exact.Uint64())

	_, err = mulDiv(uint256.NewInt(1), uint256.NewInt(1), new(uint256.Int))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	max := new(uint256.Int).SetAllOne()
	_, err = mulDiv(max, max, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	wide, err := mulDiv(max, max, max)
	require.NoError(t, err)
	require.True(t, wide.Eq(max))
}

func TestCheckedArithmetic(t *testing.T) {
	max := new(uint256.Int).SetAllOne()

	_, err := addChecked(max, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = subChecked(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = mulChecked(max, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	require.Equal(t, uint64(3), Min(uint256.NewInt(3), uint256.NewInt(7)).Uint64())
}
