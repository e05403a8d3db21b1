package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
	"swapScope/internal/model"
)

// PoolRecord converts a pool to its storage form.
func PoolRecord(chainID uint64, pool amm.Pool) model.Pool {
	return model.Pool{
		ChainID:     chainID,
		PoolID:      pool.ID.Hex(),
		Asset0:      pool.Asset0.Hex(),
		Asset1:      pool.Asset1.Hex(),
		Fee:         pool.FeeBps,
		TotalShares: pool.TotalShares.Dec(),
		Reserve0:    pool.Reserve0.Dec(),
		Reserve1:    pool.Reserve1.Dec(),
	}
}

// ExportSnapshot copies the registry into its persisted form.
func ExportSnapshot(chainID, seq uint64, state *amm.State) model.StateSnapshot {
	pools := state.Export()
	snapshot := model.StateSnapshot{Seq: seq, Pools: make([]model.PoolSnapshot, 0, len(pools))}
	for _, ps := range pools {
		positions := make([]model.Position, 0, len(ps.Positions))
		for _, entry := range ps.Positions {
			positions = append(positions, model.Position{
				PositionID: entry.ID.Hex(),
				PoolID:     ps.ID.Hex(),
				Owner:      entry.Owner.Hex(),
				Shares:     entry.Shares.Dec(),
			})
		}
		snapshot.Pools = append(snapshot.Pools, model.PoolSnapshot{
			Pool:      PoolRecord(chainID, ps.Pool),
			Positions: positions,
		})
	}
	return snapshot
}

// ImportSnapshot rebuilds a registry from its persisted form.
func ImportSnapshot(snapshot model.StateSnapshot) (*amm.State, error) {
	pools := make([]amm.PoolState, 0, len(snapshot.Pools))
	for _, ps := range snapshot.Pools {
		pool, err := parsePool(ps.Pool)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", ps.PoolID, err)
		}
		entries := make([]amm.PositionEntry, 0, len(ps.Positions))
		for _, pos := range ps.Positions {
			shares, err := uint256.FromDecimal(pos.Shares)
			if err != nil {
				return nil, fmt.Errorf("pool %s position %s shares: %w", ps.PoolID, pos.PositionID, err)
			}
			if !common.IsHexAddress(pos.Owner) {
				return nil, fmt.Errorf("pool %s position %s: invalid owner %q", ps.PoolID, pos.PositionID, pos.Owner)
			}
			owner := common.HexToAddress(pos.Owner)
			entries = append(entries, amm.PositionEntry{
				ID:       amm.PositionID(pool.ID, owner),
				Position: amm.Position{Owner: owner, Shares: *shares},
			})
		}
		pools = append(pools, amm.PoolState{Pool: pool, Positions: entries})
	}

	state := amm.NewState()
	state.Import(pools)
	return state, nil
}

func parsePool(record model.Pool) (amm.Pool, error) {
	if !common.IsHexAddress(record.Asset0) || !common.IsHexAddress(record.Asset1) {
		return amm.Pool{}, fmt.Errorf("invalid assets %q %q", record.Asset0, record.Asset1)
	}
	id, asset0, asset1 := amm.PoolID(common.HexToAddress(record.Asset0), common.HexToAddress(record.Asset1), record.Fee)
	if record.PoolID != "" && common.HexToHash(record.PoolID) != id {
		return amm.Pool{}, fmt.Errorf("pool id does not match assets and fee")
	}

	pool := amm.Pool{ID: id, Asset0: asset0, Asset1: asset1, FeeBps: record.Fee}
	for _, field := range []struct {
		name  string
		value string
		dst   *uint256.Int
	}{
		{"total_shares", record.TotalShares, &pool.TotalShares},
		{"reserve0", record.Reserve0, &pool.Reserve0},
		{"reserve1", record.Reserve1, &pool.Reserve1},
	} {
		v, err := uint256.FromDecimal(field.value)
		if err != nil {
			return amm.Pool{}, fmt.Errorf("%s: %w", field.name, err)
		}
		field.dst.Set(v)
	}
	return pool, nil
}

// ExportLedger copies the in-memory ledger into its persisted form.
func ExportLedger(mem *ledger.Memory) *model.LedgerSnapshot {
	balances, allowances := mem.Export()
	out := &model.LedgerSnapshot{
		Balances:   make([]model.LedgerBalance, 0, len(balances)),
		Allowances: make([]model.LedgerAllowance, 0, len(allowances)),
	}
	for _, b := range balances {
		out.Balances = append(out.Balances, model.LedgerBalance{
			Asset:   b.Asset.Hex(),
			Account: b.Account.Hex(),
			Amount:  b.Amount.Dec(),
		})
	}
	for _, a := range allowances {
		out.Allowances = append(out.Allowances, model.LedgerAllowance{
			Token:   a.Token.Hex(),
			Owner:   a.Owner.Hex(),
			Spender: a.Spender.Hex(),
			Amount:  a.Amount.Dec(),
		})
	}
	return out
}

// ImportLedger restores ledger content from its persisted form.
func ImportLedger(mem *ledger.Memory, snapshot *model.LedgerSnapshot) error {
	if snapshot == nil {
		return nil
	}
	balances := make([]ledger.Balance, 0, len(snapshot.Balances))
	for _, b := range snapshot.Balances {
		amount, err := uint256.FromDecimal(b.Amount)
		if err != nil {
			return fmt.Errorf("balance of %s in %s: %w", b.Account, b.Asset, err)
		}
		balances = append(balances, ledger.Balance{
			Asset:   common.HexToAddress(b.Asset),
			Account: common.HexToAddress(b.Account),
			Amount:  *amount,
		})
	}
	allowances := make([]ledger.Allowance, 0, len(snapshot.Allowances))
	for _, a := range snapshot.Allowances {
		amount, err := uint256.FromDecimal(a.Amount)
		if err != nil {
			return fmt.Errorf("allowance of %s for %s in %s: %w", a.Owner, a.Spender, a.Token, err)
		}
		allowances = append(allowances, ledger.Allowance{
			Token:   common.HexToAddress(a.Token),
			Owner:   common.HexToAddress(a.Owner),
			Spender: common.HexToAddress(a.Spender),
			Amount:  *amount,
		})
	}
	mem.Import(balances, allowances)
	return nil
}
