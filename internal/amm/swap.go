package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// QuoteSwap prices a trade on the constant-product curve. The output reserve
// left after the trade is rounded up so the reserve product never shrinks;
// fee is taken from the gross output and stays in the reserve.
func QuoteSwap(inputReserve, outputReserve, inputAmount *uint256.Int, feeBps uint32) (gross, fee, net *uint256.Int, err error) {
	denominator, err := addChecked(inputReserve, inputAmount)
	if err != nil {
		return nil, nil, nil, err
	}
	remaining, err := mulDivUp(inputReserve, outputReserve, denominator)
	if err != nil {
		return nil, nil, nil, err
	}
	gross, err = subChecked(outputReserve, remaining)
	if err != nil {
		return nil, nil, nil, err
	}
	fee, err = mulDiv(gross, uint256.NewInt(uint64(feeBps)), uint256.NewInt(FeeDenominator))
	if err != nil {
		return nil, nil, nil, err
	}
	net, err = subChecked(gross, fee)
	if err != nil {
		return nil, nil, nil, err
	}
	return gross, fee, net, nil
}

// Swap sells inputAmount of one pool asset for the other. zeroForOne sells
// asset0. It returns the output paid to the caller after fees.
func (e *Engine) Swap(
	ctx context.Context,
	call Call,
	poolID common.Hash,
	inputAmount, minOutput *uint256.Int,
	zeroForOne bool,
) (output *uint256.Int, err error) {
	f, err := e.begin(ctx, OpSwap, call)
	defer func() {
		if err = e.finish(ctx, f, err); err != nil {
			output = nil
		}
	}()
	if err != nil {
		return nil, err
	}

	inputAmount, minOutput = amountOrZero(inputAmount), amountOrZero(minOutput)
	if inputAmount.IsZero() {
		return nil, ErrInsufficientAmount
	}

	pool, ok := e.state.Pool(poolID)
	if !ok {
		return nil, poolError(ErrPoolDoesNotExist, poolID)
	}
	if pool.TotalShares.IsZero() {
		return nil, poolError(ErrInsufficientLiquidity, poolID)
	}

	inputAsset, outputAsset := pool.Asset1, pool.Asset0
	inputReserve, outputReserve := &pool.Reserve1, &pool.Reserve0
	if zeroForOne {
		inputAsset, outputAsset = pool.Asset0, pool.Asset1
		inputReserve, outputReserve = &pool.Reserve0, &pool.Reserve1
	}

	gross, fee, net, err := QuoteSwap(inputReserve, outputReserve, inputAmount, pool.FeeBps)
	if err != nil {
		return nil, poolError(err, poolID)
	}
	if net.Lt(minOutput) {
		return nil, poolError(ErrTooMuchSlippage, poolID)
	}
	if !net.Lt(outputReserve) {
		return nil, poolError(ErrInsufficientLiquidity, poolID)
	}

	newInput, err := addChecked(inputReserve, inputAmount)
	if err != nil {
		return nil, poolError(err, poolID)
	}
	inputReserve.Set(newInput)
	outputReserve.Sub(outputReserve, net)
	e.state.setPool(pool)

	if err := e.transfer(ctx, inputAsset, call.Sender, e.cfg.Account, inputAmount); err != nil {
		return nil, err
	}
	if err := e.transfer(ctx, outputAsset, e.cfg.Account, call.Sender, net); err != nil {
		return nil, err
	}

	e.emit(Swapped{
		PoolID:       poolID,
		User:         call.Sender,
		InputAmount:  new(uint256.Int).Set(inputAmount),
		OutputAmount: net,
		Fees:         fee,
		ZeroForOne:   zeroForOne,
	})

	e.logger.Debug("swap executed",
		zap.String("pool", poolID.Hex()),
		zap.String("user", call.Sender.Hex()),
		zap.String("input", inputAmount.Dec()),
		zap.String("gross_output", gross.Dec()),
		zap.String("output", net.Dec()),
		zap.String("fee", fee.Dec()),
		zap.Bool("zero_for_one", zeroForOne),
	)
	return net, nil
}
