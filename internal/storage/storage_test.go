package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"swapScope/internal/amm"
	"swapScope/internal/ledger"
	"swapScope/internal/model"
)

func TestSnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	account := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	mem := ledger.NewMemory()
	require.NoError(t, mem.Mint(amm.NativeAsset, user, uint256.NewInt(1_000_000)))
	require.NoError(t, mem.Mint(tokenB, user, uint256.NewInt(1_000_000)))
	mem.Approve(tokenB, user, account, uint256.NewInt(1_000_000))

	engine := amm.NewEngine(amm.Config{Account: account}, nil, mem, nil, nil)
	id, err := engine.CreatePool(ctx, amm.Call{Sender: user}, tokenB, amm.NativeAsset, 30)
	require.NoError(t, err)
	_, _, err = engine.AddLiquidity(ctx, amm.Call{Sender: user, Value: uint256.NewInt(40_000)}, id,
		uint256.NewInt(40_000), uint256.NewInt(90_000), nil, nil)
	require.NoError(t, err)

	store := NewFileSnapshotStore(filepath.Join(t.TempDir(), "state", "snapshot.json"))
	_, found, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.False(t, found)

	snapshot := ExportSnapshot(1, engine.Seq(), engine.State())
	snapshot.Ledger = ExportLedger(mem)
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))
	loaded, found, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(2), loaded.Seq)

	state, err := ImportSnapshot(loaded)
	require.NoError(t, err)

	// the native-asset pool must stay present after a restart
	pool, ok := state.Pool(id)
	require.True(t, ok)
	want, _ := engine.Pool(id)
	require.Equal(t, want, pool)
	require.Equal(t, uint64(59_000), state.PositionShares(id, user).Uint64())

	restored := ledger.NewMemory()
	require.NoError(t, ImportLedger(restored, loaded.Ledger))
	require.Equal(t, uint64(40_000), restored.BalanceOf(amm.NativeAsset, account).Uint64())
	require.Equal(t, uint64(910_000), restored.BalanceOf(tokenB, user).Uint64())
	require.Equal(t, uint64(910_000), restored.Allowance(tokenB, user, account).Uint64())
}

func TestImportSnapshotRejectsMismatchedID(t *testing.T) {
	_, err := ImportSnapshot(model.StateSnapshot{Pools: []model.PoolSnapshot{{
		Pool: model.Pool{
			PoolID:      common.HexToHash("0x01").Hex(),
			Asset0:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Asset1:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			Fee:         30,
			TotalShares: "0",
			Reserve0:    "0",
			Reserve1:    "0",
		},
	}}})
	require.Error(t, err)
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "logs.jsonl")
	store := NewJsonlStorage(path)

	require.NoError(t, store.PutLogBatch(context.Background(), []model.LogRecord{{BlockNumber: 1}, {BlockNumber: 1, LogIndex: 1}}))
	require.NoError(t, store.PutLogBatch(context.Background(), []model.LogRecord{{BlockNumber: 2}}))
	require.NoError(t, store.PutLogBatch(context.Background(), nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var blocks []uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.LogRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		blocks = append(blocks, record.BlockNumber)
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, []uint64{1, 1, 2}, blocks)
}

type recordingStorage struct {
	name  string
	calls *[]string
	err   error
}

func (r recordingStorage) PutLogBatch(_ context.Context, _ []model.LogRecord) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestMultiStorageStopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	multi := MultiStorage{
		recordingStorage{name: "pg", calls: &calls},
		recordingStorage{name: "jsonl", calls: &calls, err: boom},
		recordingStorage{name: "never", calls: &calls},
	}

	err := multi.PutLogBatch(context.Background(), []model.LogRecord{{BlockNumber: 1}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"pg", "jsonl"}, calls)
}
