package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
	"swapScope/internal/model"
)

// ErrUnsupportedOp is returned for unknown operations and for ledger
// operations when no in-memory ledger is attached.
var ErrUnsupportedOp = errors.New("unsupported operation")

// Result carries the outputs of an applied operation. Unset fields do not
// apply to the operation kind.
type Result struct {
	PoolID     common.Hash
	PositionID common.Hash
	Minted     *uint256.Int
	Amount0    *uint256.Int
	Amount1    *uint256.Int
	Output     *uint256.Int
}

// Executor applies operations to an engine.
type Executor struct {
	engine *amm.Engine
	ledger *ledger.Memory
}

// NewExecutor builds an Executor. mem may be nil when the engine runs
// against an external ledger.
func NewExecutor(engine *amm.Engine, mem *ledger.Memory) *Executor {
	return &Executor{engine: engine, ledger: mem}
}

func (x *Executor) Engine() *amm.Engine {
	return x.engine
}

func (x *Executor) Ledger() *ledger.Memory {
	return x.ledger
}

// Apply parses and executes one operation.
func (x *Executor) Apply(ctx context.Context, op model.Operation) (Result, error) {
	sender, err := ParseAddress("sender", op.Sender, false)
	if err != nil {
		return Result{}, err
	}
	value, err := ParseAmount("value", op.Value)
	if err != nil {
		return Result{}, err
	}
	call := amm.Call{Sender: sender, Value: value}

	switch op.Op {
	case model.OpMint:
		return Result{}, x.mint(op)
	case model.OpApprove:
		return Result{}, x.approve(sender, op)
	case model.OpCreatePool:
		assetA, err := ParseAddress("asset_a", op.AssetA, true)
		if err != nil {
			return Result{}, err
		}
		assetB, err := ParseAddress("asset_b", op.AssetB, true)
		if err != nil {
			return Result{}, err
		}
		id, err := x.engine.CreatePool(ctx, call, assetA, assetB, op.Fee)
		return Result{PoolID: id}, err
	case model.OpAddLiquidity:
		poolID, err := x.poolID(op)
		if err != nil {
			return Result{}, err
		}
		amounts, err := parseAmounts(op, "amount0", "amount1", "min0", "min1")
		if err != nil {
			return Result{}, err
		}
		minted, positionID, err := x.engine.AddLiquidity(ctx, call, poolID, amounts[0], amounts[1], amounts[2], amounts[3])
		return Result{PoolID: poolID, PositionID: positionID, Minted: minted}, err
	case model.OpRemoveLiquidity:
		poolID, err := x.poolID(op)
		if err != nil {
			return Result{}, err
		}
		shares, err := ParseAmount("shares", op.Shares)
		if err != nil {
			return Result{}, err
		}
		amount0, amount1, err := x.engine.RemoveLiquidity(ctx, call, poolID, shares)
		return Result{PoolID: poolID, Amount0: amount0, Amount1: amount1}, err
	case model.OpSwap:
		poolID, err := x.poolID(op)
		if err != nil {
			return Result{}, err
		}
		amounts, err := parseAmounts(op, "input", "min_output")
		if err != nil {
			return Result{}, err
		}
		output, err := x.engine.Swap(ctx, call, poolID, amounts[0], amounts[1], op.ZeroForOne)
		return Result{PoolID: poolID, Output: output}, err
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedOp, op.Op)
	}
}

// poolID takes pool_id when present and derives it from the pair otherwise.
func (x *Executor) poolID(op model.Operation) (common.Hash, error) {
	if op.PoolID != "" {
		return ParseHash("pool_id", op.PoolID)
	}
	assetA, err := ParseAddress("asset_a", op.AssetA, true)
	if err != nil {
		return common.Hash{}, err
	}
	assetB, err := ParseAddress("asset_b", op.AssetB, true)
	if err != nil {
		return common.Hash{}, err
	}
	if assetA == assetB {
		return common.Hash{}, argError("pool_id or a distinct asset pair is required")
	}
	id, _, _ := amm.PoolID(assetA, assetB, op.Fee)
	return id, nil
}

func (x *Executor) mint(op model.Operation) error {
	if x.ledger == nil {
		return fmt.Errorf("%w: mint without in-memory ledger", ErrUnsupportedOp)
	}
	asset, err := ParseAddress("asset", op.Asset, true)
	if err != nil {
		return err
	}
	account, err := ParseAddress("account", op.Account, false)
	if err != nil {
		return err
	}
	amount, err := ParseAmount("amount", op.Amount)
	if err != nil {
		return err
	}
	return x.ledger.Mint(asset, account, amount)
}

// approve lets spender, the engine account by default, move the sender's
// tokens.
func (x *Executor) approve(owner common.Address, op model.Operation) error {
	if x.ledger == nil {
		return fmt.Errorf("%w: approve without in-memory ledger", ErrUnsupportedOp)
	}
	token, err := ParseAddress("asset", op.Asset, false)
	if err != nil {
		return err
	}
	spender := x.engine.Account()
	if op.Spender != "" {
		if spender, err = ParseAddress("spender", op.Spender, false); err != nil {
			return err
		}
	}
	amount, err := ParseAmount("amount", op.Amount)
	if err != nil {
		return err
	}
	x.ledger.Approve(token, owner, spender, amount)
	return nil
}

func parseAmounts(op model.Operation, fields ...string) ([]*uint256.Int, error) {
	values := map[string]string{
		"amount0":    op.Amount0,
		"amount1":    op.Amount1,
		"min0":       op.Min0,
		"min1":       op.Min1,
		"input":      op.Input,
		"min_output": op.MinOutput,
	}
	out := make([]*uint256.Int, 0, len(fields))
	for _, field := range fields {
		v, err := ParseAmount(field, values[field])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
