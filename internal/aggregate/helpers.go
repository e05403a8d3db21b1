package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

var yearSeconds = big.NewRat(int64(365*24*time.Hour/time.Second), 1)

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// feeRate returns fee/tvl, or nil when either side is empty.
func feeRate(fee, tvl *big.Int) *big.Rat {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() <= 0 {
		return nil
	}
	return new(big.Rat).SetFrac(fee, tvl)
}

func ratString(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	s := r.FloatString(ratioScale)
	return &s
}

// computeAPR annualizes the window's fee yield. Both reserves hold the same
// value at the pool price, so the pool yield is the mean of the per-side
// rates.
func computeAPR(fee0, fee1, tvl0, tvl1 *big.Int, windowSeconds uint64) *string {
	if windowSeconds == 0 || tvl0 == nil || tvl1 == nil || tvl0.Sign() <= 0 || tvl1.Sign() <= 0 {
		return nil
	}
	rate0, rate1 := feeRate(fee0, tvl0), feeRate(fee1, tvl1)
	if rate0 == nil && rate1 == nil {
		return nil
	}
	total := new(big.Rat)
	if rate0 != nil {
		total.Add(total, rate0)
	}
	if rate1 != nil {
		total.Add(total, rate1)
	}
	total.Quo(total, big.NewRat(2, 1))
	total.Mul(total, yearSeconds)
	total.Quo(total, big.NewRat(int64(windowSeconds), 1))
	return ratString(total)
}
