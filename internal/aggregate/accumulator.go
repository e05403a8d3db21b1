package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"swapScope/internal/amm"
	"swapScope/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	ChainID     uint64
	PoolID      string
	PoolMeta    model.PoolMeta
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	LastBlock   uint64
	LastTS      uint64
	FirstBlock  uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:     record.ChainID,
		PoolID:      record.PoolID,
		PoolMeta:    record.PoolMeta,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		LastBlock:   record.BlockNumber,
		LastTS:      record.Timestamp,
		FirstBlock:  record.BlockNumber,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
		a.LastBlock = record.BlockNumber
	}
	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}
	if a.PoolMeta.Asset0 == "" && record.PoolMeta.Asset0 != "" {
		a.PoolMeta = record.PoolMeta
	}

	if record.EventName != amm.EventSwap {
		return nil
	}
	var swap model.SwapEventData
	if err := json.Unmarshal(record.Decoded, &swap); err != nil {
		return fmt.Errorf("decode swap: %w", err)
	}
	return a.applySwap(swap)
}

// applySwap adds the trade to the window. The fee is charged on the output
// asset, so a zeroForOne trade accrues fee1.
func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	input, err := parseBigInt(swap.InputAmount)
	if err != nil {
		return err
	}
	output, err := parseBigInt(swap.OutputAmount)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fees)
	if err != nil {
		return err
	}

	if swap.ZeroForOne {
		a.Volume0.Add(a.Volume0, input)
		a.Volume1.Add(a.Volume1, output)
		a.Fee1.Add(a.Fee1, fee)
	} else {
		a.Volume1.Add(a.Volume1, input)
		a.Volume0.Add(a.Volume0, output)
		a.Fee0.Add(a.Fee0, fee)
	}
	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
