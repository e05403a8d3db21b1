package amm

import "github.com/ethereum/go-ethereum/common"

// journalEntry undoes one registry write.
type journalEntry interface {
	revert(s *State)
}

type createPoolEntry struct {
	id common.Hash
}

func (e createPoolEntry) revert(s *State) {
	delete(s.slots, e.id)
}

type poolEntry struct {
	prev Pool
}

func (e poolEntry) revert(s *State) {
	if slot, ok := s.slots[e.prev.ID]; ok {
		slot.pool = e.prev
	}
}

type positionEntry struct {
	poolID     common.Hash
	positionID common.Hash
	prev       Position
	existed    bool
}

func (e positionEntry) revert(s *State) {
	slot, ok := s.slots[e.poolID]
	if !ok {
		return
	}
	if e.existed {
		slot.positions[e.positionID] = e.prev
		return
	}
	delete(slot.positions, e.positionID)
}

func (s *State) checkpoint() int {
	return len(s.journal)
}

func (s *State) revertTo(checkpoint int) {
	for i := len(s.journal) - 1; i >= checkpoint; i-- {
		s.journal[i].revert(s)
	}
	s.journal = s.journal[:checkpoint]
}

func (s *State) commit() {
	s.journal = s.journal[:0]
}
