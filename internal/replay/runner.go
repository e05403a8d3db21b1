package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"swapScope/internal/amm"
	"swapScope/internal/events"
	"swapScope/internal/ledger"
	"swapScope/internal/model"
	"swapScope/internal/storage"
)

// RunConfig holds runtime settings for the replayer.
type RunConfig struct {
	ScriptPath        string
	ChainID           uint64
	Account           string
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	Retry             RetryPolicy
}

// Stats summarizes a run.
type Stats struct {
	Applied int
	Failed  int
	Logs    int
}

// Runner applies an operations script to a fresh or restored engine and
// writes the emitted logs to storage.
type Runner struct {
	cfg        RunConfig
	storage    storage.Storage
	snapshots  storage.SnapshotStore
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

// NewRunner builds a Runner. snapshots may be nil, in which case every run
// starts from an empty registry and ignores checkpoints.
func NewRunner(cfg RunConfig, logSink storage.Storage, snapshots storage.SnapshotStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		storage:    logSink,
		snapshots:  snapshots,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled && snapshots != nil),
		logger:     logger,
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if r.storage == nil {
		return stats, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return stats, fmt.Errorf("batch size must be greater than zero")
	}
	account, err := ParseAddress("account", r.cfg.Account, false)
	if err != nil {
		return stats, err
	}

	ops, err := readScript(r.cfg.ScriptPath)
	if err != nil {
		return stats, err
	}

	mem := ledger.NewMemory()
	state := amm.NewState()
	var seq uint64
	from := uint64(1)

	cp, resumed, err := r.checkpoint.Load()
	if err != nil {
		return stats, err
	}
	if resumed {
		if cp.Script != "" && cp.Script != filepath.Base(r.cfg.ScriptPath) {
			return stats, fmt.Errorf("checkpoint belongs to script %s", cp.Script)
		}
		snapshot, ok, err := r.snapshots.LoadSnapshot(ctx)
		if err != nil {
			return stats, fmt.Errorf("load snapshot: %w", err)
		}
		if !ok || snapshot.Seq != cp.Seq {
			return stats, fmt.Errorf("snapshot does not match checkpoint at seq %d", cp.Seq)
		}
		if state, err = storage.ImportSnapshot(snapshot); err != nil {
			return stats, fmt.Errorf("restore snapshot: %w", err)
		}
		if err := storage.ImportLedger(mem, snapshot.Ledger); err != nil {
			return stats, fmt.Errorf("restore ledger: %w", err)
		}
		seq = snapshot.Seq
		from = cp.LastAppliedLine + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_applied_line", cp.LastAppliedLine), zap.Uint64("seq", seq))
	}

	to := uint64(len(ops))
	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return stats, nil
	}

	encoder, err := events.NewEncoder(r.cfg.ChainID, account)
	if err != nil {
		return stats, err
	}
	var pending []amm.Receipt
	collect := amm.SinkFunc(func(_ context.Context, receipt amm.Receipt) error {
		pending = append(pending, receipt)
		return nil
	})
	engine := amm.NewEngine(amm.Config{Account: account, Seq: seq}, state, mem, collect, r.logger)
	executor := NewExecutor(engine, mem)

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, lines := range ranges {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		for line := lines.From; line <= lines.To; line++ {
			op := ops[line-1]
			if op.skip {
				continue
			}
			if op.err == nil {
				_, op.err = executor.Apply(ctx, op.op)
			}
			if op.err != nil {
				stats.Failed++
				r.logger.Warn("operation failed", zap.Uint64("line", line), zap.String("op", op.op.Op), zap.Error(op.err))
				continue
			}
			stats.Applied++
		}

		records := make([]model.LogRecord, 0, len(pending))
		for _, receipt := range pending {
			logs, err := encoder.Encode(receipt)
			if err != nil {
				return stats, err
			}
			records = append(records, logs...)
		}
		pending = pending[:0]

		if err := r.storeWithRetry(ctx, records); err != nil {
			return stats, fmt.Errorf("store logs: %w", err)
		}
		stats.Logs += len(records)

		if err := r.saveProgress(ctx, engine, mem, lines.To); err != nil {
			return stats, err
		}

		r.logger.Info("batch complete",
			zap.Uint64("from", lines.From),
			zap.Uint64("to", lines.To),
			zap.Int("logs", len(records)),
			zap.Uint64("seq", engine.Seq()),
		)
	}

	return stats, nil
}

func (r *Runner) storeWithRetry(ctx context.Context, records []model.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	return withRetry(ctx, r.cfg.Retry, func(ctx context.Context) error {
		err := r.storage.PutLogBatch(ctx, records)
		if err != nil {
			r.logger.Warn("store logs failed", zap.Error(err), zap.Int("logs", len(records)))
		}
		return err
	})
}

// saveProgress writes the snapshot before the checkpoint so a checkpoint
// never points past the state it describes.
func (r *Runner) saveProgress(ctx context.Context, engine *amm.Engine, mem *ledger.Memory, line uint64) error {
	if r.snapshots == nil {
		return nil
	}
	snapshot := storage.ExportSnapshot(r.cfg.ChainID, engine.Seq(), engine.State())
	snapshot.Ledger = storage.ExportLedger(mem)
	err := withRetry(ctx, r.cfg.Retry, func(ctx context.Context) error {
		return r.snapshots.SaveSnapshot(ctx, snapshot)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return r.checkpoint.Save(Checkpoint{
		Script:          filepath.Base(r.cfg.ScriptPath),
		LastAppliedLine: line,
		Seq:             engine.Seq(),
	})
}

type scriptLine struct {
	op   model.Operation
	err  error
	skip bool
}

// readScript loads every line of the script. Blank lines and lines starting
// with '#' become no-op entries so line numbers stay stable.
func readScript(path string) ([]scriptLine, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()

	var out []scriptLine
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			out = append(out, scriptLine{skip: true})
			continue
		}
		var op model.Operation
		if err := json.Unmarshal([]byte(text), &op); err != nil {
			out = append(out, scriptLine{err: fmt.Errorf("parse operation: %w", err)})
			continue
		}
		out = append(out, scriptLine{op: op})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return out, nil
}
