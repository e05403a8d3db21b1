package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger moves balances between accounts. The engine is the only caller
// and always sits on one side of a movement.
type Ledger interface {
	// TransferNative moves native currency.
	TransferNative(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	// Transfer moves token from the caller-owned account from to to.
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) (bool, error)
	// TransferFrom moves token from from to to on behalf of spender.
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) (bool, error)
}

// Snapshotter is implemented by ledgers that can roll back their own
// writes. The engine snapshots them at the start of every call.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(id int)
	Commit()
}
