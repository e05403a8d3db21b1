package ledger

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	token   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0x2222222222222222222222222222222222222222")
	other   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestMemoryTransferFrom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Mint(token, owner, uint256.NewInt(100)))

	ok, err := m.TransferFrom(ctx, token, spender, owner, other, uint256.NewInt(10))
	require.NoError(t, err)
	require.False(t, ok, "no allowance")

	m.Approve(token, owner, spender, uint256.NewInt(50))
	ok, err = m.TransferFrom(ctx, token, spender, owner, other, uint256.NewInt(40))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(60), m.BalanceOf(token, owner).Uint64())
	require.Equal(t, uint64(40), m.BalanceOf(token, other).Uint64())
	require.Equal(t, uint64(10), m.Allowance(token, owner, spender).Uint64())

	ok, err = m.TransferFrom(ctx, token, spender, owner, other, uint256.NewInt(20))
	require.NoError(t, err)
	require.False(t, ok, "allowance exhausted")

	ok, err = m.Transfer(ctx, token, owner, other, uint256.NewInt(61))
	require.NoError(t, err)
	require.False(t, ok, "balance exceeded")

	_, err = m.Transfer(ctx, NativeAsset, owner, other, uint256.NewInt(1))
	require.Error(t, err)
}

func TestMemoryNative(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Mint(NativeAsset, owner, uint256.NewInt(5)))

	require.NoError(t, m.TransferNative(ctx, owner, other, uint256.NewInt(5)))
	require.ErrorIs(t, m.TransferNative(ctx, owner, other, uint256.NewInt(1)), ErrInsufficientBalance)
	require.Equal(t, uint64(5), m.BalanceOf(NativeAsset, other).Uint64())

	require.Error(t, m.Mint(NativeAsset, other, new(uint256.Int).SetAllOne()))
}

func TestMemorySnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Mint(token, owner, uint256.NewInt(100)))
	m.Commit()

	outer := m.Snapshot()
	m.Approve(token, owner, spender, uint256.NewInt(100))
	_, err := m.TransferFrom(ctx, token, spender, owner, other, uint256.NewInt(30))
	require.NoError(t, err)

	inner := m.Snapshot()
	_, err = m.Transfer(ctx, token, other, owner, uint256.NewInt(10))
	require.NoError(t, err)
	m.RevertToSnapshot(inner)
	require.Equal(t, uint64(30), m.BalanceOf(token, other).Uint64())

	m.RevertToSnapshot(outer)
	require.Equal(t, uint64(100), m.BalanceOf(token, owner).Uint64())
	require.True(t, m.BalanceOf(token, other).IsZero())
	require.True(t, m.Allowance(token, owner, spender).IsZero())

	require.Panics(t, func() { m.RevertToSnapshot(outer + 5) })
}

func TestMemoryExportImport(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Mint(token, owner, uint256.NewInt(100)))
	require.NoError(t, m.Mint(NativeAsset, other, uint256.NewInt(7)))
	m.Approve(token, owner, spender, uint256.NewInt(30))
	m.Approve(token, other, spender, new(uint256.Int))

	balances, allowances := m.Export()
	require.Len(t, balances, 2)
	require.Equal(t, NativeAsset, balances[0].Asset)
	require.Len(t, allowances, 1)

	restored := NewMemory()
	restored.Import(balances, allowances)
	require.Equal(t, uint64(100), restored.BalanceOf(token, owner).Uint64())
	require.Equal(t, uint64(7), restored.BalanceOf(NativeAsset, other).Uint64())
	require.Equal(t, uint64(30), restored.Allowance(token, owner, spender).Uint64())
	require.Zero(t, restored.Snapshot())
}
