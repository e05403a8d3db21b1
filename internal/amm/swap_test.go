package amm_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"swapScope/internal/amm"
)

func TestSwap(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)

	out, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), u(997), true)
	require.NoError(t, err)
	// gross 999, fee floor(999*30/10000) = 2
	require.Equal(t, uint64(997), out.Uint64())

	pool, _ := fx.engine.Pool(id)
	require.Equal(t, uint64(1_001_000), pool.Reserve0.Uint64())
	require.Equal(t, uint64(999_003), pool.Reserve1.Uint64())
	require.Equal(t, uint64(8_999_000), fx.balance(tokenA, alice))
	require.Equal(t, uint64(9_000_997), fx.balance(tokenB, alice))

	swapped, ok := fx.receipts[len(fx.receipts)-1].Events[0].(amm.Swapped)
	require.True(t, ok)
	require.Equal(t, uint64(1000), swapped.InputAmount.Uint64())
	require.Equal(t, uint64(997), swapped.OutputAmount.Uint64())
	require.Equal(t, uint64(2), swapped.Fees.Uint64())
	require.True(t, swapped.ZeroForOne)

	out, err = fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, false)
	require.NoError(t, err)
	require.False(t, out.IsZero())
	pool, _ = fx.engine.Pool(id)
	require.Equal(t, uint64(1_000_003), pool.Reserve1.Uint64())
}

func TestSwapRejectsZeroInput(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	fx.ledger.calls = 0

	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(0), nil, true)
	require.ErrorIs(t, err, amm.ErrInsufficientAmount)
	_, err = fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, nil, nil, true)
	require.ErrorIs(t, err, amm.ErrInsufficientAmount)
	require.Zero(t, fx.ledger.calls)
}

func TestSwapSlippageLeavesPoolUntouched(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	before, _ := fx.engine.Pool(id)
	fx.ledger.calls = 0

	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), u(998), true)
	require.ErrorIs(t, err, amm.ErrTooMuchSlippage)

	after, _ := fx.engine.Pool(id)
	require.Equal(t, before, after)
	require.Zero(t, fx.ledger.calls)
}

func TestSwapEmptyPool(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, alice, tokenA, 1000)
	id := fx.createPool(t, tokenA, tokenB, 30)

	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, true)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidity)

	_, err = fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, tokenPairMissing(), u(1000), nil, true)
	require.ErrorIs(t, err, amm.ErrPoolDoesNotExist)
}

func TestSwapRollsBackOnOutputFailure(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	before, _ := fx.engine.Pool(id)
	receipts := len(fx.receipts)
	balance := fx.balance(tokenA, alice)

	fx.ledger.failTransfer = true
	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, true)
	require.ErrorIs(t, err, amm.ErrFailedOrInsufficientTokenTransfer)
	require.ErrorIs(t, err, errRejected)

	after, _ := fx.engine.Pool(id)
	require.Equal(t, before, after)
	require.Equal(t, balance, fx.balance(tokenA, alice))
	require.Len(t, fx.receipts, receipts)
}

func TestQuoteSwapZeroFeeNeverShrinksProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		in := uint256.NewInt(uint64(rng.Int63n(1_000_000_000_000)) + 1)
		out := uint256.NewInt(uint64(rng.Int63n(1_000_000_000_000)) + 1)
		amount := uint256.NewInt(uint64(rng.Int63n(1_000_000_000)) + 1)

		gross, fee, net, err := amm.QuoteSwap(in, out, amount, 0)
		require.NoError(t, err)
		require.True(t, fee.IsZero())
		require.True(t, gross.Eq(net))

		newIn := new(uint256.Int).Add(in, amount)
		newOut := new(uint256.Int).Sub(out, net)
		before := new(uint256.Int).Mul(in, out)
		after := new(uint256.Int).Mul(newIn, newOut)
		require.Falsef(t, after.Lt(before), "k shrank: in=%s out=%s amount=%s", in.Dec(), out.Dec(), amount.Dec())
	}
}

func TestQuoteSwapFee(t *testing.T) {
	gross, fee, net, err := amm.QuoteSwap(u(1_000_000), u(1_000_000), u(100_000), 10_000)
	require.NoError(t, err)
	require.True(t, fee.Eq(gross))
	require.True(t, net.IsZero())
}

func tokenPairMissing() common.Hash {
	id, _, _ := amm.PoolID(tokenA, bob, 30)
	return id
}
