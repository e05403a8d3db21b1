package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// IntegerSqrt returns floor(sqrt(x)) using Babylonian iteration.
func IntegerSqrt(x *uint256.Int) *uint256.Int {
	// (x+1)>>1 without overflowing at 2^256-1
	z := new(uint256.Int).Rsh(x, 1)
	if x[0]&1 == 1 {
		z.AddUint64(z, 1)
	}
	y := new(uint256.Int).Set(x)

	quo := new(uint256.Int)
	for z.Lt(y) {
		y.Set(z)
		quo.Div(x, z)
		z.Add(quo, z)
		z.Rsh(z, 1)
	}
	return y
}

// Min returns a copy of the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int).Set(x)
	}
	return new(uint256.Int).Set(y)
}

func addChecked(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

func subChecked(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

func mulChecked(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// mulDiv computes floor(x*y/d) with a 512-bit intermediate product.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrArithmeticOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// mulDivUp computes ceil(x*y/d).
func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	return addChecked(z, uint256.NewInt(1))
}
