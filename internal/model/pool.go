package model

// Pool is the storage and API view of one pool.
type Pool struct {
	ChainID     uint64 `json:"chain_id"`
	PoolID      string `json:"pool_id"`
	Asset0      string `json:"asset0"`
	Asset1      string `json:"asset1"`
	Fee         uint32 `json:"fee"`
	TotalShares string `json:"total_shares"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
}

// Position is one owner's share balance in a pool.
type Position struct {
	PositionID string `json:"position_id"`
	PoolID     string `json:"pool_id"`
	Owner      string `json:"owner"`
	Shares     string `json:"shares"`
}

// PoolSnapshot is a pool together with all of its positions.
type PoolSnapshot struct {
	Pool
	Positions []Position `json:"positions"`
}

// StateSnapshot is the persisted form of the whole registry. Ledger is set
// when the host runs the in-memory ledger.
type StateSnapshot struct {
	Seq    uint64          `json:"seq"`
	Pools  []PoolSnapshot  `json:"pools"`
	Ledger *LedgerSnapshot `json:"ledger,omitempty"`
}

// LedgerSnapshot holds in-memory ledger balances and allowances.
type LedgerSnapshot struct {
	Balances   []LedgerBalance   `json:"balances"`
	Allowances []LedgerAllowance `json:"allowances"`
}

type LedgerBalance struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type LedgerAllowance struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}
