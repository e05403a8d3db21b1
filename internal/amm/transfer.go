package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// transfer moves amount of asset between the engine account and a
// participant. Inbound native amounts are paid from the value attached to
// the current call; any excess is refunded to the sender.
func (e *Engine) transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error {
	self := e.cfg.Account
	fail := func(err error) error {
		return &TransferError{Asset: asset, From: from, To: to, Amount: new(uint256.Int).Set(amount), Err: err}
	}

	if from != self && to != self {
		return fail(errForeignTransfer)
	}

	if asset == NativeAsset {
		if from == self {
			if err := e.ledger.TransferNative(ctx, self, to, amount); err != nil {
				return fail(err)
			}
			return nil
		}

		f := e.currentFrame()
		if f == nil {
			return fail(errInsufficientValue)
		}
		value := amountOrZero(f.call.Value)
		if value.Lt(amount) {
			return fail(errInsufficientValue)
		}
		f.valueConsumed = true

		extra := new(uint256.Int).Sub(value, amount)
		if !extra.IsZero() {
			return e.transfer(ctx, asset, self, from, extra)
		}
		return nil
	}

	var (
		ok  bool
		err error
	)
	if from == self {
		ok, err = e.ledger.Transfer(ctx, asset, self, to, amount)
	} else {
		ok, err = e.ledger.TransferFrom(ctx, asset, self, from, to, amount)
	}
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(errTransferRejected)
	}
	return nil
}
