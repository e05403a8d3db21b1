package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// CreatePool registers the pool for an unordered asset pair and fee tier.
func (e *Engine) CreatePool(ctx context.Context, call Call, assetA, assetB common.Address, feeBps uint32) (poolID common.Hash, err error) {
	f, err := e.begin(ctx, OpCreatePool, call)
	defer func() {
		if err = e.finish(ctx, f, err); err != nil {
			poolID = common.Hash{}
		}
	}()
	if err != nil {
		return common.Hash{}, err
	}

	if assetA == assetB {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrIdenticalAssets, assetA.Hex())
	}
	if feeBps > FeeDenominator {
		return common.Hash{}, fmt.Errorf("%w: %d exceeds %d", ErrInvalidFee, feeBps, FeeDenominator)
	}

	id, asset0, asset1 := PoolID(assetA, assetB, feeBps)
	if _, exists := e.state.lookup(id); exists {
		return common.Hash{}, poolError(ErrPoolAlreadyExists, id)
	}

	e.state.createPool(Pool{
		ID:     id,
		Asset0: asset0,
		Asset1: asset1,
		FeeBps: feeBps,
	})
	e.emit(PoolCreated{
		PoolID:  id,
		Asset0:  asset0,
		Asset1:  asset1,
		FeeBps:  feeBps,
		Creator: call.Sender,
	})

	e.logger.Debug("pool created",
		zap.String("pool", id.Hex()),
		zap.String("asset0", asset0.Hex()),
		zap.String("asset1", asset1.Hex()),
		zap.Uint32("fee_bps", feeBps),
	)
	return id, nil
}
