package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"swapScope/internal/amm"
	"swapScope/internal/model"
)

// PoolReserves follows a pool's reserves and total shares through its event
// stream. Complete is set once the PoolCreated record was seen, so the
// replayed values describe the pool exactly.
type PoolReserves struct {
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalShares *big.Int
	Complete    bool
	FirstBlock  uint64
}

func newPoolReserves() *PoolReserves {
	return &PoolReserves{
		Reserve0:    big.NewInt(0),
		Reserve1:    big.NewInt(0),
		TotalShares: big.NewInt(0),
	}
}

// Apply moves the reserves by one typed event.
func (r *PoolReserves) Apply(record model.TypedEventRecord) error {
	if r.FirstBlock == 0 || record.BlockNumber < r.FirstBlock {
		r.FirstBlock = record.BlockNumber
	}

	switch record.EventName {
	case amm.EventPoolCreated:
		r.Reserve0.SetInt64(0)
		r.Reserve1.SetInt64(0)
		r.TotalShares.SetInt64(0)
		r.Complete = true
		return nil
	case amm.EventLiquidityMinted, amm.EventLiquidityBurned:
		var liq model.LiquidityEventData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode liquidity: %w", err)
		}
		shares, err := parseBigInt(liq.Liquidity)
		if err != nil {
			return err
		}
		amount0, err := parseBigInt(liq.Amount0)
		if err != nil {
			return err
		}
		amount1, err := parseBigInt(liq.Amount1)
		if err != nil {
			return err
		}
		if record.EventName == amm.EventLiquidityMinted {
			r.TotalShares.Add(r.TotalShares, shares)
			r.Reserve0.Add(r.Reserve0, amount0)
			r.Reserve1.Add(r.Reserve1, amount1)
		} else {
			r.TotalShares.Sub(r.TotalShares, shares)
			r.Reserve0.Sub(r.Reserve0, amount0)
			r.Reserve1.Sub(r.Reserve1, amount1)
		}
	case amm.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		input, err := parseBigInt(swap.InputAmount)
		if err != nil {
			return err
		}
		output, err := parseBigInt(swap.OutputAmount)
		if err != nil {
			return err
		}
		if swap.ZeroForOne {
			r.Reserve0.Add(r.Reserve0, input)
			r.Reserve1.Sub(r.Reserve1, output)
		} else {
			r.Reserve1.Add(r.Reserve1, input)
			r.Reserve0.Sub(r.Reserve0, output)
		}
	}

	if r.Reserve0.Sign() < 0 || r.Reserve1.Sign() < 0 || r.TotalShares.Sign() < 0 {
		// the stream started after the pool was created
		r.Complete = false
	}
	return nil
}
