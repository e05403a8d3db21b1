package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// QuoteLiquidity selects the deposit amounts for a liquidity addition.
// An empty pool takes the desired amounts as-is; otherwise the amounts keep
// the current reserve ratio, bounded by the desired and minimum amounts.
func QuoteLiquidity(desired0, desired1, min0, min1, reserve0, reserve1 *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if reserve0.IsZero() && reserve1.IsZero() {
		return new(uint256.Int).Set(desired0), new(uint256.Int).Set(desired1), nil
	}

	optimal1, err := mulDiv(desired0, reserve1, reserve0)
	if err != nil {
		return nil, nil, err
	}
	if !optimal1.Gt(desired1) {
		if optimal1.Lt(min1) {
			return nil, nil, ErrInsufficientAmount
		}
		return new(uint256.Int).Set(desired0), optimal1, nil
	}

	optimal0, err := mulDiv(desired1, reserve0, reserve1)
	if err != nil {
		return nil, nil, err
	}
	if optimal0.Lt(min0) {
		return nil, nil, ErrInsufficientAmount
	}
	return optimal0, new(uint256.Int).Set(desired1), nil
}

// AddLiquidity deposits both assets into a pool and mints shares to the
// caller's position. It returns the shares credited to the position.
func (e *Engine) AddLiquidity(
	ctx context.Context,
	call Call,
	poolID common.Hash,
	desired0, desired1, min0, min1 *uint256.Int,
) (minted *uint256.Int, positionID common.Hash, err error) {
	f, err := e.begin(ctx, OpAddLiquidity, call)
	defer func() {
		if err = e.finish(ctx, f, err); err != nil {
			minted, positionID = nil, common.Hash{}
		}
	}()
	if err != nil {
		return nil, common.Hash{}, err
	}

	desired0, desired1 = amountOrZero(desired0), amountOrZero(desired1)
	min0, min1 = amountOrZero(min0), amountOrZero(min1)

	pool, ok := e.state.Pool(poolID)
	if !ok {
		return nil, common.Hash{}, poolError(ErrPoolDoesNotExist, poolID)
	}
	isInitial := pool.TotalShares.IsZero()

	amount0, amount1, err := QuoteLiquidity(desired0, desired1, min0, min1, &pool.Reserve0, &pool.Reserve1)
	if err != nil {
		return nil, common.Hash{}, poolError(err, poolID)
	}

	var poolIncrease *uint256.Int
	if isInitial {
		product, err := mulChecked(amount0, amount1)
		if err != nil {
			return nil, common.Hash{}, poolError(err, poolID)
		}
		root := IntegerSqrt(product)
		if root.CmpUint64(MinimumLiquidity) < 0 {
			return nil, common.Hash{}, poolError(ErrInsufficientLiquidityMinted, poolID)
		}
		minted = new(uint256.Int).SubUint64(root, MinimumLiquidity)
		poolIncrease = root
	} else {
		byAmount0, err := mulDiv(amount0, &pool.TotalShares, &pool.Reserve0)
		if err != nil {
			return nil, common.Hash{}, poolError(err, poolID)
		}
		byAmount1, err := mulDiv(amount1, &pool.TotalShares, &pool.Reserve1)
		if err != nil {
			return nil, common.Hash{}, poolError(err, poolID)
		}
		minted = Min(byAmount0, byAmount1)
		poolIncrease = minted
	}
	if poolIncrease.IsZero() {
		return nil, common.Hash{}, poolError(ErrInsufficientLiquidityMinted, poolID)
	}

	totalShares, err := addChecked(&pool.TotalShares, poolIncrease)
	if err != nil {
		return nil, common.Hash{}, poolError(err, poolID)
	}
	reserve0, err := addChecked(&pool.Reserve0, amount0)
	if err != nil {
		return nil, common.Hash{}, poolError(err, poolID)
	}
	reserve1, err := addChecked(&pool.Reserve1, amount1)
	if err != nil {
		return nil, common.Hash{}, poolError(err, poolID)
	}

	positionID = PositionID(poolID, call.Sender)
	position := e.state.Position(poolID, positionID)
	shares, err := addChecked(&position.Shares, minted)
	if err != nil {
		return nil, common.Hash{}, poolError(err, poolID)
	}

	pool.TotalShares = *totalShares
	pool.Reserve0 = *reserve0
	pool.Reserve1 = *reserve1
	e.state.setPool(pool)
	e.state.setPosition(poolID, positionID, Position{Owner: call.Sender, Shares: *shares})

	if err := e.transfer(ctx, pool.Asset0, call.Sender, e.cfg.Account, amount0); err != nil {
		return nil, common.Hash{}, err
	}
	if err := e.transfer(ctx, pool.Asset1, call.Sender, e.cfg.Account, amount1); err != nil {
		return nil, common.Hash{}, err
	}

	e.emit(LiquidityMinted{
		PoolID:    poolID,
		Owner:     call.Sender,
		Liquidity: poolIncrease,
		Amount0:   amount0,
		Amount1:   amount1,
	})

	e.logger.Debug("liquidity added",
		zap.String("pool", poolID.Hex()),
		zap.String("owner", call.Sender.Hex()),
		zap.String("minted", minted.Dec()),
		zap.Bool("initial", isInitial),
	)
	return minted, positionID, nil
}

// RemoveLiquidity burns shares from the caller's position and pays out the
// proportional share of both reserves, rounded down.
func (e *Engine) RemoveLiquidity(
	ctx context.Context,
	call Call,
	poolID common.Hash,
	shares *uint256.Int,
) (amount0, amount1 *uint256.Int, err error) {
	f, err := e.begin(ctx, OpRemoveLiquidity, call)
	defer func() {
		if err = e.finish(ctx, f, err); err != nil {
			amount0, amount1 = nil, nil
		}
	}()
	if err != nil {
		return nil, nil, err
	}

	shares = amountOrZero(shares)

	pool, ok := e.state.Pool(poolID)
	if !ok {
		return nil, nil, poolError(ErrPoolDoesNotExist, poolID)
	}

	positionID := PositionID(poolID, call.Sender)
	position := e.state.Position(poolID, positionID)
	if shares.Gt(&position.Shares) || pool.TotalShares.IsZero() {
		return nil, nil, poolError(ErrInsufficientLiquidityOwned, poolID)
	}

	amount0, err = mulDiv(&pool.Reserve0, shares, &pool.TotalShares)
	if err != nil {
		return nil, nil, poolError(err, poolID)
	}
	amount1, err = mulDiv(&pool.Reserve1, shares, &pool.TotalShares)
	if err != nil {
		return nil, nil, poolError(err, poolID)
	}
	if amount0.IsZero() || amount1.IsZero() {
		return nil, nil, poolError(ErrInsufficientLiquidityOwned, poolID)
	}

	pool.TotalShares.Sub(&pool.TotalShares, shares)
	pool.Reserve0.Sub(&pool.Reserve0, amount0)
	pool.Reserve1.Sub(&pool.Reserve1, amount1)
	position.Shares.Sub(&position.Shares, shares)
	position.Owner = call.Sender
	e.state.setPool(pool)
	e.state.setPosition(poolID, positionID, position)

	if err := e.transfer(ctx, pool.Asset0, e.cfg.Account, call.Sender, amount0); err != nil {
		return nil, nil, err
	}
	if err := e.transfer(ctx, pool.Asset1, e.cfg.Account, call.Sender, amount1); err != nil {
		return nil, nil, err
	}

	e.emit(LiquidityBurned{
		PoolID:    poolID,
		Owner:     call.Sender,
		Liquidity: new(uint256.Int).Set(shares),
		Amount0:   amount0,
		Amount1:   amount1,
	})

	e.logger.Debug("liquidity removed",
		zap.String("pool", poolID.Hex()),
		zap.String("owner", call.Sender.Hex()),
		zap.String("shares", shares.Dec()),
	)
	return amount0, amount1, nil
}
