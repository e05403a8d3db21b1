package amm_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"swapScope/internal/amm"
)

func TestAddLiquidityInitialDeposit(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, alice, tokenA, 2_000_000)
	fx.fund(t, alice, tokenB, 2_000_000)
	id := fx.createPool(t, tokenB, tokenA, 30)

	minted, positionID, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: alice}, id,
		u(1_000_000), u(1_000_000), nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(999_000), minted.Uint64())
	require.Equal(t, amm.PositionID(id, alice), positionID)

	pool, ok := fx.engine.Pool(id)
	require.True(t, ok)
	require.Equal(t, uint64(1_000_000), pool.TotalShares.Uint64())
	require.Equal(t, uint64(1_000_000), pool.Reserve0.Uint64())
	require.Equal(t, uint64(1_000_000), pool.Reserve1.Uint64())
	require.Equal(t, uint64(999_000), fx.engine.PositionShares(id, alice).Uint64())

	require.Equal(t, uint64(1_000_000), fx.balance(tokenA, engineAccount))
	require.Equal(t, uint64(1_000_000), fx.balance(tokenB, alice))

	last := fx.receipts[len(fx.receipts)-1]
	require.Equal(t, amm.OpAddLiquidity, last.Op)
	require.Len(t, last.Events, 1)
	event, ok := last.Events[0].(amm.LiquidityMinted)
	require.True(t, ok)
	require.Equal(t, uint64(1_000_000), event.Liquidity.Uint64())
}

func TestAddLiquidityInitialDepositBelowMinimum(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, alice, tokenA, 10_000)
	fx.fund(t, alice, tokenB, 10_000)
	id := fx.createPool(t, tokenA, tokenB, 30)

	_, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: alice}, id, u(999), u(999), nil, nil)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityMinted)

	pool, _ := fx.engine.Pool(id)
	require.True(t, pool.TotalShares.IsZero())
	require.Equal(t, uint64(10_000), fx.balance(tokenA, alice))

	// exactly the locked minimum mints nothing to the owner but seeds the pool
	minted, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: alice}, id, u(1000), u(1000), nil, nil)
	require.NoError(t, err)
	require.True(t, minted.IsZero())
	pool, _ = fx.engine.Pool(id)
	require.Equal(t, uint64(amm.MinimumLiquidity), pool.TotalShares.Uint64())
}

func TestAddLiquidityUnknownPool(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, alice, tokenA, 1_000_000)
	fx.fund(t, alice, tokenB, 1_000_000)
	fx.ledger.calls = 0

	_, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: alice}, common.HexToHash("0xdead"),
		u(1_000_000), u(1_000_000), nil, nil)
	require.ErrorIs(t, err, amm.ErrPoolDoesNotExist)
	require.Zero(t, fx.ledger.calls)
	require.Empty(t, fx.receipts)
}

func TestAddLiquidityKeepsReserveRatio(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 4_000_000)

	fx.fund(t, bob, tokenA, 100_000)
	fx.fund(t, bob, tokenB, 100_000)

	minted, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: bob}, id,
		u(10_000), u(100_000), nil, nil)
	require.NoError(t, err)
	// 10_000 of asset0 pairs with 40_000 of asset1 at the 1:4 ratio
	require.Equal(t, uint64(90_000), fx.balance(tokenA, bob))
	require.Equal(t, uint64(60_000), fx.balance(tokenB, bob))
	// totalShares is sqrt(4e12) = 2e6, so 1% of the pool is 20_000 shares
	require.Equal(t, uint64(20_000), minted.Uint64())

	_, _, err = fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: bob}, id,
		u(10_000), u(100_000), nil, u(50_000))
	require.ErrorIs(t, err, amm.ErrInsufficientAmount)

	_, _, err = fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: bob}, id,
		u(10_000), u(20_000), u(6_000), nil)
	require.ErrorIs(t, err, amm.ErrInsufficientAmount)
}

func TestAddLiquidityRollsBackOnTransferFailure(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	before, _ := fx.engine.Pool(id)
	receipts := len(fx.receipts)

	fx.fund(t, bob, tokenA, 50_000)
	// no balance of tokenB: the second leg fails after the first moved funds
	_, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: bob}, id,
		u(50_000), u(50_000), nil, nil)
	require.ErrorIs(t, err, amm.ErrFailedOrInsufficientTokenTransfer)

	var transferErr *amm.TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, tokenB, transferErr.Asset)

	after, _ := fx.engine.Pool(id)
	require.Equal(t, before, after)
	require.True(t, fx.engine.PositionShares(id, bob).IsZero())
	require.Equal(t, uint64(50_000), fx.balance(tokenA, bob))
	require.Len(t, fx.receipts, receipts)
}

func TestRemoveLiquidity(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 2_000_000)
	shares := fx.engine.PositionShares(id, alice)
	pool, _ := fx.engine.Pool(id)

	want0 := new(uint256.Int).Div(new(uint256.Int).Mul(&pool.Reserve0, shares), &pool.TotalShares)
	want1 := new(uint256.Int).Div(new(uint256.Int).Mul(&pool.Reserve1, shares), &pool.TotalShares)

	amount0, amount1, err := fx.engine.RemoveLiquidity(context.Background(), amm.Call{Sender: alice}, id, shares)
	require.NoError(t, err)
	require.True(t, amount0.Eq(want0))
	require.True(t, amount1.Eq(want1))
	require.True(t, fx.engine.PositionShares(id, alice).IsZero())

	pool, _ = fx.engine.Pool(id)
	require.Equal(t, uint64(amm.MinimumLiquidity), pool.TotalShares.Uint64())
	require.False(t, pool.Reserve0.IsZero())
	require.Equal(t, 10_000_000-pool.Reserve0.Uint64(), fx.balance(tokenA, alice))

	burned, ok := fx.receipts[len(fx.receipts)-1].Events[0].(amm.LiquidityBurned)
	require.True(t, ok)
	require.True(t, burned.Liquidity.Eq(shares))
}

func TestRemoveLiquidityOverOwned(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)

	_, _, err := fx.engine.RemoveLiquidity(context.Background(), amm.Call{Sender: alice}, id, u(999_001))
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityOwned)

	_, _, err = fx.engine.RemoveLiquidity(context.Background(), amm.Call{Sender: bob}, id, u(1))
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidityOwned)

	_, _, err = fx.engine.RemoveLiquidity(context.Background(), amm.Call{Sender: alice}, common.HexToHash("0x01"), u(1))
	require.ErrorIs(t, err, amm.ErrPoolDoesNotExist)

	require.Equal(t, uint64(999_000), fx.engine.PositionShares(id, alice).Uint64())
}

func TestQuoteLiquidity(t *testing.T) {
	a0, a1, err := amm.QuoteLiquidity(u(100), u(300), u(0), u(0), new(uint256.Int), new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, uint64(100), a0.Uint64())
	require.Equal(t, uint64(300), a1.Uint64())

	// desired1 binds: 100 of asset1 needs only 50 of asset0
	a0, a1, err = amm.QuoteLiquidity(u(100), u(100), u(0), u(0), u(1000), u(2000))
	require.NoError(t, err)
	require.Equal(t, uint64(50), a0.Uint64())
	require.Equal(t, uint64(100), a1.Uint64())

	_, _, err = amm.QuoteLiquidity(u(100), u(100), u(60), u(0), u(1000), u(2000))
	require.ErrorIs(t, err, amm.ErrInsufficientAmount)
}
