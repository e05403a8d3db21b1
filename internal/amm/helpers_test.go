package amm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
)

var (
	engineAccount = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	tokenA        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB        = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	alice         = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob           = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

var errRejected = errors.New("rejected by test ledger")

// testLedger wraps the memory ledger with call counting and hooks.
type testLedger struct {
	*ledger.Memory
	calls          int
	onTransferFrom func()
	failTransfer   bool
}

func (l *testLedger) TransferNative(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	l.calls++
	return l.Memory.TransferNative(ctx, from, to, amount)
}

func (l *testLedger) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) (bool, error) {
	l.calls++
	if l.failTransfer {
		return false, errRejected
	}
	return l.Memory.Transfer(ctx, token, from, to, amount)
}

func (l *testLedger) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *uint256.Int) (bool, error) {
	l.calls++
	if hook := l.onTransferFrom; hook != nil {
		l.onTransferFrom = nil
		hook()
	}
	return l.Memory.TransferFrom(ctx, token, spender, from, to, amount)
}

type fixture struct {
	engine   *amm.Engine
	ledger   *testLedger
	receipts []amm.Receipt
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fx := &fixture{ledger: &testLedger{Memory: ledger.NewMemory()}}
	sink := amm.SinkFunc(func(_ context.Context, r amm.Receipt) error {
		fx.receipts = append(fx.receipts, r)
		return nil
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fx.engine = amm.NewEngine(amm.Config{
		Account: engineAccount,
		Now:     func() time.Time { return now },
	}, nil, fx.ledger, sink, zap.NewNop())
	return fx
}

func (fx *fixture) fund(t *testing.T, owner common.Address, asset common.Address, amount uint64) {
	t.Helper()
	require.NoError(t, fx.ledger.Mint(asset, owner, uint256.NewInt(amount)))
	if asset != amm.NativeAsset {
		fx.ledger.Approve(asset, owner, engineAccount, new(uint256.Int).SetAllOne())
	}
}

func (fx *fixture) balance(asset, owner common.Address) uint64 {
	return fx.ledger.BalanceOf(asset, owner).Uint64()
}

func (fx *fixture) createPool(t *testing.T, assetA, assetB common.Address, feeBps uint32) common.Hash {
	t.Helper()
	id, err := fx.engine.CreatePool(context.Background(), amm.Call{Sender: alice}, assetA, assetB, feeBps)
	require.NoError(t, err)
	return id
}

func (fx *fixture) seedPool(t *testing.T, feeBps uint32, amount0, amount1 uint64) common.Hash {
	t.Helper()
	fx.fund(t, alice, tokenA, 10_000_000)
	fx.fund(t, alice, tokenB, 10_000_000)
	id := fx.createPool(t, tokenA, tokenB, feeBps)
	_, _, err := fx.engine.AddLiquidity(context.Background(), amm.Call{Sender: alice}, id,
		uint256.NewInt(amount0), uint256.NewInt(amount1), nil, nil)
	require.NoError(t, err)
	return id
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
