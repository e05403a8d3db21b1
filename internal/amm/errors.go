package amm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrPoolAlreadyExists                 = errors.New("pool already exists")
	ErrPoolDoesNotExist                  = errors.New("pool does not exist")
	ErrInsufficientAmount                = errors.New("insufficient amount")
	ErrInsufficientLiquidityMinted       = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityOwned        = errors.New("insufficient liquidity owned")
	ErrFailedOrInsufficientTokenTransfer = errors.New("failed or insufficient token transfer")
	ErrTooMuchSlippage                   = errors.New("too much slippage")

	ErrIdenticalAssets       = errors.New("identical assets")
	ErrInvalidFee            = errors.New("invalid fee")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrUnexpectedNativeValue = errors.New("unexpected native value")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
)

var (
	errForeignTransfer   = errors.New("engine account is neither sender nor receiver")
	errInsufficientValue = errors.New("attached native value below amount")
	errTransferRejected  = errors.New("token transfer returned false")
)

// TransferError describes a failed asset movement through the ledger.
// It matches ErrFailedOrInsufficientTokenTransfer under errors.Is.
type TransferError struct {
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount *uint256.Int
	Err    error
}

func (e *TransferError) Error() string {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.Dec()
	}
	msg := fmt.Sprintf("%s: %s of %s from %s to %s", ErrFailedOrInsufficientTokenTransfer, amount, e.Asset.Hex(), e.From.Hex(), e.To.Hex())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFailedOrInsufficientTokenTransfer}
	}
	return []error{ErrFailedOrInsufficientTokenTransfer, e.Err}
}

func poolError(err error, poolID common.Hash) error {
	return fmt.Errorf("pool %s: %w", poolID.Hex(), err)
}
