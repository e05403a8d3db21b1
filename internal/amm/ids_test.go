package amm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestPoolIDIsOrderIndependent(t *testing.T) {
	a := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	b := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	id1, asset0, asset1 := PoolID(a, b, 30)
	id2, _, _ := PoolID(b, a, 30)
	require.Equal(t, id1, id2)
	require.Equal(t, b, asset0)
	require.Equal(t, a, asset1)

	other, _, _ := PoolID(a, b, 5)
	require.NotEqual(t, id1, other)
}

func TestPoolIDMatchesABIEncoding(t *testing.T) {
	addressType, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	uint24Type, err := abi.NewType("uint24", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: uint24Type}}

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	packed, err := args.Pack(NativeAsset, token, big.NewInt(3000))
	require.NoError(t, err)

	id, asset0, _ := PoolID(token, NativeAsset, 3000)
	require.Equal(t, NativeAsset, asset0)
	require.Equal(t, crypto.Keccak256Hash(packed), id)
}

func TestPositionID(t *testing.T) {
	poolID := common.HexToHash("0x01")
	alice := common.HexToAddress("0x2222222222222222222222222222222222222222")
	bob := common.HexToAddress("0x3333333333333333333333333333333333333333")

	require.Equal(t, PositionID(poolID, alice), PositionID(poolID, alice))
	require.NotEqual(t, PositionID(poolID, alice), PositionID(poolID, bob))
	require.NotEqual(t, PositionID(poolID, alice), PositionID(common.HexToHash("0x02"), alice))
}
