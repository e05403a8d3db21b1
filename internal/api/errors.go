package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
	"swapScope/internal/replay"
)

// APIRespond is the envelope of every response.
type APIRespond struct {
	Result interface{} `json:"result"`
	Error  *string     `json:"error"`
}

func buildGinErrorRespond(err error) APIRespond {
	msg := err.Error()
	return APIRespond{Error: &msg}
}

var validationErrors = []error{
	replay.ErrInvalidArgument,
	replay.ErrUnsupportedOp,
	amm.ErrInsufficientAmount,
	amm.ErrInsufficientLiquidityMinted,
	amm.ErrInsufficientLiquidityOwned,
	amm.ErrInsufficientLiquidity,
	amm.ErrTooMuchSlippage,
	amm.ErrIdenticalAssets,
	amm.ErrInvalidFee,
	amm.ErrUnexpectedNativeValue,
	amm.ErrArithmeticOverflow,
}

// statusFor maps engine and parse errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, amm.ErrPoolDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, amm.ErrPoolAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, amm.ErrFailedOrInsufficientTokenTransfer), errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), buildGinErrorRespond(err))
}
