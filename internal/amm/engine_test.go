package amm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
)

func TestCreatePool(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	id, err := fx.engine.CreatePool(ctx, amm.Call{Sender: alice}, tokenB, tokenA, 30)
	require.NoError(t, err)

	pool, ok := fx.engine.Pool(id)
	require.True(t, ok)
	require.Equal(t, tokenA, pool.Asset0)
	require.Equal(t, tokenB, pool.Asset1)
	require.Equal(t, uint32(30), pool.FeeBps)
	require.True(t, pool.TotalShares.IsZero())

	_, err = fx.engine.CreatePool(ctx, amm.Call{Sender: bob}, tokenA, tokenB, 30)
	require.ErrorIs(t, err, amm.ErrPoolAlreadyExists)

	_, err = fx.engine.CreatePool(ctx, amm.Call{Sender: alice}, tokenA, tokenA, 30)
	require.ErrorIs(t, err, amm.ErrIdenticalAssets)

	_, err = fx.engine.CreatePool(ctx, amm.Call{Sender: alice}, tokenA, tokenB, 10_001)
	require.ErrorIs(t, err, amm.ErrInvalidFee)

	other, err := fx.engine.CreatePool(ctx, amm.Call{Sender: alice}, tokenA, tokenB, 5)
	require.NoError(t, err)
	require.NotEqual(t, id, other)

	require.Len(t, fx.receipts, 2)
	require.Equal(t, uint64(1), fx.receipts[0].Seq)
	require.Equal(t, uint64(2), fx.receipts[1].Seq)
	require.Equal(t, uint64(2), fx.engine.Seq())
	created, ok := fx.receipts[0].Events[0].(amm.PoolCreated)
	require.True(t, ok)
	require.Equal(t, alice, created.Creator)
	require.NotEqual(t, fx.receipts[0].CallHash, fx.receipts[1].CallHash)
}

func TestReentrantCallSeesUpdatedPool(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)

	var seen amm.Pool
	fx.ledger.onTransferFrom = func() {
		seen, _ = fx.engine.Pool(id)
	}
	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1_001_000), seen.Reserve0.Uint64())
	require.Equal(t, uint64(999_003), seen.Reserve1.Uint64())
}

func TestNestedCallCommitsWithParent(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	receipts := len(fx.receipts)

	var nestedID common.Hash
	var nestedErr error
	fx.ledger.onTransferFrom = func() {
		nestedID, nestedErr = fx.engine.CreatePool(context.Background(), amm.Call{Sender: alice}, tokenA, bob, 30)
	}
	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, true)
	require.NoError(t, err)
	require.NoError(t, nestedErr)

	_, ok := fx.engine.Pool(nestedID)
	require.True(t, ok)
	require.Len(t, fx.receipts, receipts+1)
	last := fx.receipts[len(fx.receipts)-1]
	require.Equal(t, amm.OpSwap, last.Op)
	require.Len(t, last.Events, 2)
	require.Equal(t, amm.EventPoolCreated, last.Events[0].EventName())
	require.Equal(t, amm.EventSwap, last.Events[1].EventName())
}

func TestNestedCallRevertsWithParent(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)
	receipts := len(fx.receipts)

	var nestedID common.Hash
	fx.ledger.onTransferFrom = func() {
		var err error
		nestedID, err = fx.engine.CreatePool(context.Background(), amm.Call{Sender: alice}, tokenA, bob, 30)
		require.NoError(t, err)
	}
	fx.ledger.failTransfer = true
	_, err := fx.engine.Swap(context.Background(), amm.Call{Sender: alice}, id, u(1000), nil, true)
	require.ErrorIs(t, err, amm.ErrFailedOrInsufficientTokenTransfer)

	_, ok := fx.engine.Pool(nestedID)
	require.False(t, ok)
	require.Len(t, fx.receipts, receipts)
	require.Len(t, fx.engine.State().Pools(), 1)
}

func TestNativeValueRefund(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.fund(t, alice, amm.NativeAsset, 5_000_000)
	fx.fund(t, alice, tokenB, 5_000_000)
	id := fx.createPool(t, tokenB, amm.NativeAsset, 30)

	pool, _ := fx.engine.Pool(id)
	require.Equal(t, amm.NativeAsset, pool.Asset0)

	_, _, err := fx.engine.AddLiquidity(ctx, amm.Call{Sender: alice, Value: u(1_500_000)}, id,
		u(1_000_000), u(1_000_000), nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(4_000_000), fx.balance(amm.NativeAsset, alice))
	require.Equal(t, uint64(1_000_000), fx.balance(amm.NativeAsset, engineAccount))

	out, err := fx.engine.Swap(ctx, amm.Call{Sender: alice, Value: u(1000)}, id, u(1000), nil, true)
	require.NoError(t, err)
	require.Equal(t, uint64(3_999_000), fx.balance(amm.NativeAsset, alice))
	require.Equal(t, 4_000_000+out.Uint64(), fx.balance(tokenB, alice))

	// selling the token pays native out from the pool
	out, err = fx.engine.Swap(ctx, amm.Call{Sender: alice}, id, u(1000), nil, false)
	require.NoError(t, err)
	require.Equal(t, 3_999_000+out.Uint64(), fx.balance(amm.NativeAsset, alice))
}

func TestNativeValueMisuse(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.fund(t, alice, amm.NativeAsset, 5_000_000)
	fx.fund(t, alice, tokenB, 5_000_000)
	id := fx.createPool(t, amm.NativeAsset, tokenB, 30)

	_, err := fx.engine.CreatePool(ctx, amm.Call{Sender: alice, Value: u(10)}, tokenA, tokenB, 30)
	require.ErrorIs(t, err, amm.ErrUnexpectedNativeValue)
	require.Equal(t, uint64(5_000_000), fx.balance(amm.NativeAsset, alice))

	_, _, err = fx.engine.AddLiquidity(ctx, amm.Call{Sender: alice, Value: u(10)}, id,
		u(1_000_000), u(1_000_000), nil, nil)
	require.ErrorIs(t, err, amm.ErrFailedOrInsufficientTokenTransfer)
	require.Equal(t, uint64(5_000_000), fx.balance(amm.NativeAsset, alice))

	_, _, err = fx.engine.AddLiquidity(ctx, amm.Call{Sender: alice, Value: u(1_000_000)}, id,
		u(1_000_000), u(1_000_000), nil, nil)
	require.NoError(t, err)

	// the native asset is the output of this direction
	_, err = fx.engine.Swap(ctx, amm.Call{Sender: alice, Value: u(1000)}, id, u(1000), nil, false)
	require.ErrorIs(t, err, amm.ErrUnexpectedNativeValue)
	require.Equal(t, uint64(4_000_000), fx.balance(amm.NativeAsset, alice))

	_, err = fx.engine.Swap(ctx, amm.Call{Sender: bob, Value: u(1000)}, id, u(1000), nil, true)
	require.ErrorIs(t, err, amm.ErrFailedOrInsufficientTokenTransfer)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestSinkFailureDoesNotRevert(t *testing.T) {
	mem := ledger.NewMemory()
	sink := amm.SinkFunc(func(context.Context, amm.Receipt) error {
		return errors.New("sink down")
	})
	engine := amm.NewEngine(amm.Config{Account: engineAccount}, nil, mem, sink, zap.NewNop())

	id, err := engine.CreatePool(context.Background(), amm.Call{Sender: alice}, tokenA, tokenB, 30)
	require.NoError(t, err)
	_, ok := engine.Pool(id)
	require.True(t, ok)
	require.Equal(t, uint64(1), engine.Seq())
}

func TestStateExportImport(t *testing.T) {
	fx := newFixture(t)
	id := fx.seedPool(t, 30, 1_000_000, 1_000_000)

	exported := fx.engine.State().Export()
	require.Len(t, exported, 1)
	require.Len(t, exported[0].Positions, 1)
	require.Equal(t, alice, exported[0].Positions[0].Owner)

	restored := amm.NewState()
	restored.Import(exported)
	engine := amm.NewEngine(amm.Config{Account: engineAccount, Seq: fx.engine.Seq()}, restored, fx.ledger, nil, nil)

	pool, ok := engine.Pool(id)
	require.True(t, ok)
	want, _ := fx.engine.Pool(id)
	require.Equal(t, want, pool)
	require.True(t, engine.PositionShares(id, alice).Eq(uint256.NewInt(999_000)))
	require.Equal(t, fx.engine.Seq(), engine.Seq())
}
