package amm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventPoolCreated     = "PoolCreated"
	EventLiquidityMinted = "LiquidityMinted"
	EventLiquidityBurned = "LiquidityBurned"
	EventSwap            = "Swap"
)

// Event is a record emitted by a committed operation.
type Event interface {
	EventName() string
	Pool() common.Hash
}

type PoolCreated struct {
	PoolID  common.Hash
	Asset0  common.Address
	Asset1  common.Address
	FeeBps  uint32
	Creator common.Address
}

func (PoolCreated) EventName() string   { return EventPoolCreated }
func (e PoolCreated) Pool() common.Hash { return e.PoolID }

// LiquidityMinted reports the pool's total share increase, which includes
// the locked minimum liquidity on a first deposit.
type LiquidityMinted struct {
	PoolID    common.Hash
	Owner     common.Address
	Liquidity *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

func (LiquidityMinted) EventName() string   { return EventLiquidityMinted }
func (e LiquidityMinted) Pool() common.Hash { return e.PoolID }

type LiquidityBurned struct {
	PoolID    common.Hash
	Owner     common.Address
	Liquidity *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

func (LiquidityBurned) EventName() string   { return EventLiquidityBurned }
func (e LiquidityBurned) Pool() common.Hash { return e.PoolID }

type Swapped struct {
	PoolID       common.Hash
	User         common.Address
	InputAmount  *uint256.Int
	OutputAmount *uint256.Int
	Fees         *uint256.Int
	ZeroForOne   bool
}

func (Swapped) EventName() string   { return EventSwap }
func (e Swapped) Pool() common.Hash { return e.PoolID }

// Receipt groups the events of one committed top-level call.
type Receipt struct {
	Seq       uint64
	CallHash  common.Hash
	Op        string
	Sender    common.Address
	Timestamp time.Time
	Events    []Event
}

// Sink receives receipts after their call committed.
type Sink interface {
	Publish(ctx context.Context, receipt Receipt) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, receipt Receipt) error

func (f SinkFunc) Publish(ctx context.Context, receipt Receipt) error {
	return f(ctx, receipt)
}
