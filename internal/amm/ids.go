package amm

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NativeAsset identifies the chain's native currency.
var NativeAsset = common.Address{}

// SortAssets orders two assets by their byte representation.
func SortAssets(assetA, assetB common.Address) (common.Address, common.Address) {
	if bytes.Compare(assetA.Bytes(), assetB.Bytes()) <= 0 {
		return assetA, assetB
	}
	return assetB, assetA
}

// PoolID derives the pool identifier for an unordered asset pair and fee.
// The hash input is the ABI encoding of (address asset0, address asset1, uint24 fee).
func PoolID(assetA, assetB common.Address, feeBps uint32) (common.Hash, common.Address, common.Address) {
	asset0, asset1 := SortAssets(assetA, assetB)

	var fee [4]byte
	binary.BigEndian.PutUint32(fee[:], feeBps&0xffffff)

	id := crypto.Keccak256Hash(
		common.LeftPadBytes(asset0.Bytes(), 32),
		common.LeftPadBytes(asset1.Bytes(), 32),
		common.LeftPadBytes(fee[1:], 32),
	)
	return id, asset0, asset1
}

// PositionID derives the position identifier of owner within a pool.
func PositionID(poolID common.Hash, owner common.Address) common.Hash {
	return crypto.Keccak256Hash(poolID.Bytes(), common.LeftPadBytes(owner.Bytes(), 32))
}
