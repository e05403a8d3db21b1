package amm

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MinimumLiquidity is locked forever on the first deposit into a pool.
const MinimumLiquidity = 1000

// FeeDenominator is the scale of Pool.FeeBps.
const FeeDenominator = 10_000

// Pool is the scalar state of one pair. Positions are kept by State.
type Pool struct {
	ID          common.Hash
	Asset0      common.Address
	Asset1      common.Address
	FeeBps      uint32
	TotalShares uint256.Int
	Reserve0    uint256.Int
	Reserve1    uint256.Int
}

// Position is one owner's share balance in a pool.
type Position struct {
	Owner  common.Address
	Shares uint256.Int
}

// PositionEntry pairs a position with its identifier.
type PositionEntry struct {
	ID common.Hash
	Position
}

// PoolState is a full copy of a pool including its positions.
type PoolState struct {
	Pool
	Positions []PositionEntry
}

type poolSlot struct {
	created   bool
	pool      Pool
	positions map[common.Hash]Position
}

// State owns every pool and position. It is the aggregate the engine
// mutates; it is not safe for concurrent use.
type State struct {
	slots   map[common.Hash]*poolSlot
	journal []journalEntry
}

// NewState returns an empty registry.
func NewState() *State {
	return &State{slots: make(map[common.Hash]*poolSlot)}
}

func (s *State) lookup(id common.Hash) (*poolSlot, bool) {
	slot, ok := s.slots[id]
	if !ok || !slot.created {
		return nil, false
	}
	return slot, true
}

// Pool returns a copy of the pool's scalar state.
func (s *State) Pool(id common.Hash) (Pool, bool) {
	slot, ok := s.lookup(id)
	if !ok {
		return Pool{}, false
	}
	return slot.pool, true
}

// Pools returns every created pool ordered by id.
func (s *State) Pools() []Pool {
	out := make([]Pool, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.created {
			out = append(out, slot.pool)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID.Bytes(), out[j].ID.Bytes()) < 0
	})
	return out
}

// Position returns the position stored under positionID, zero if absent.
func (s *State) Position(poolID, positionID common.Hash) Position {
	slot, ok := s.lookup(poolID)
	if !ok {
		return Position{}
	}
	return slot.positions[positionID]
}

// PositionShares returns owner's shares in a pool, zero if absent.
func (s *State) PositionShares(poolID common.Hash, owner common.Address) *uint256.Int {
	pos := s.Position(poolID, PositionID(poolID, owner))
	return new(uint256.Int).Set(&pos.Shares)
}

// Export copies the whole registry, pools and positions ordered by id.
func (s *State) Export() []PoolState {
	pools := s.Pools()
	out := make([]PoolState, 0, len(pools))
	for _, pool := range pools {
		slot := s.slots[pool.ID]
		entries := make([]PositionEntry, 0, len(slot.positions))
		for id, pos := range slot.positions {
			entries = append(entries, PositionEntry{ID: id, Position: pos})
		}
		sort.Slice(entries, func(i, j int) bool {
			return bytes.Compare(entries[i].ID.Bytes(), entries[j].ID.Bytes()) < 0
		})
		out = append(out, PoolState{Pool: pool, Positions: entries})
	}
	return out
}

// Import replaces the registry content. The journal is cleared.
func (s *State) Import(pools []PoolState) {
	s.slots = make(map[common.Hash]*poolSlot, len(pools))
	s.journal = nil
	for _, ps := range pools {
		slot := &poolSlot{
			created:   true,
			pool:      ps.Pool,
			positions: make(map[common.Hash]Position, len(ps.Positions)),
		}
		for _, entry := range ps.Positions {
			slot.positions[entry.ID] = entry.Position
		}
		s.slots[ps.ID] = slot
	}
}

func (s *State) createPool(pool Pool) {
	s.slots[pool.ID] = &poolSlot{
		created:   true,
		pool:      pool,
		positions: make(map[common.Hash]Position),
	}
	s.journal = append(s.journal, createPoolEntry{id: pool.ID})
}

func (s *State) setPool(pool Pool) {
	slot := s.slots[pool.ID]
	s.journal = append(s.journal, poolEntry{prev: slot.pool})
	slot.pool = pool
}

func (s *State) setPosition(poolID, positionID common.Hash, pos Position) {
	slot := s.slots[poolID]
	prev, existed := slot.positions[positionID]
	s.journal = append(s.journal, positionEntry{
		poolID:     poolID,
		positionID: positionID,
		prev:       prev,
		existed:    existed,
	})
	slot.positions[positionID] = pos
}
