package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"swapScope/internal/chain"
	"swapScope/internal/events"
	"swapScope/internal/model"
)

const (
	feeMethodExact    = "swap_event_fees"
	tvlMethodReplay   = "event_replay"
	tvlMethodNone     = "unavailable"
	defaultBatchSize  = 1000
	maxTypedEventLine = 10 * 1024 * 1024
)

// MetricsStore receives pool rows and window metrics.
type MetricsStore interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Stats summarizes one aggregation run.
type Stats struct {
	Total   int
	Windows int
	Skipped int
	Failed  int
}

// Aggregator folds typed events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	decimals     *decimalsResolver
	accumulators map[string]*Accumulator
	reserves     map[string]*PoolReserves
}

// NewAggregator builds an aggregator. chainClient may be nil, in which case
// ERC20 amounts are reported in raw units.
func NewAggregator(cfg Config, store MetricsStore, chainClient *chain.Client, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		decimals: &decimalsResolver{
			chainClient: chainClient,
			cache:       events.NewTokenMetaCache(),
			logger:      logger,
		},
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string]*PoolReserves),
	}
}

// Run executes aggregation over a typed events JSONL file. Records at or
// before the resume point still move the replayed reserves so TVL stays
// exact, but they no longer count toward window metrics.
func (a *Aggregator) Run(ctx context.Context, inputPath string) (Stats, error) {
	var stats Stats
	if a.store == nil {
		return stats, fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return stats, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = defaultBatchSize
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return stats, err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTypedEventLine)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	pools := make([]model.Pool, 0, 64)
	maxTs := startTs

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			a.logger.Warn("decode typed event", zap.Error(err))
			continue
		}
		key := poolKey(record.PoolID)
		if key == "" {
			stats.Failed++
			a.logger.Warn("typed event without pool id", zap.String("event", record.EventName))
			continue
		}

		if record.Timestamp <= startTs {
			stats.Skipped++
			if err := a.poolReserves(key).Apply(record); err != nil {
				stats.Failed++
				a.logger.Warn("replay reserves", zap.Error(err), zap.String("pool", record.PoolID))
			}
			continue
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			metrics, pool := a.flushAccumulator(ctx, acc)
			batch = append(batch, metrics)
			if pool != nil {
				pools = append(pools, *pool)
			}
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(record, start, start+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}

		if err := a.poolReserves(key).Apply(record); err != nil {
			stats.Failed++
			a.logger.Warn("replay reserves", zap.Error(err), zap.String("pool", record.PoolID))
			continue
		}
		if err := acc.AddEvent(record); err != nil {
			stats.Failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.PoolID), zap.String("event", record.EventName))
			continue
		}
		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flushBatches(ctx, batch, pools); err != nil {
				return stats, err
			}
			stats.Windows += len(batch)
			batch = batch[:0]
			pools = pools[:0]
			if err := a.saveState(ctx, maxTs); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		metrics, pool := a.flushAccumulator(ctx, acc)
		batch = append(batch, metrics)
		if pool != nil {
			pools = append(pools, *pool)
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	if err := a.flushBatches(ctx, batch, pools); err != nil {
		return stats, err
	}
	stats.Windows += len(batch)
	if err := a.saveState(ctx, maxTs); err != nil {
		return stats, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", stats.Total),
		zap.Int("windows", stats.Windows),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (a *Aggregator) poolReserves(key string) *PoolReserves {
	r := a.reserves[key]
	if r == nil {
		r = newPoolReserves()
		a.reserves[key] = r
	}
	return r
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the newest timestamp whose windows are all flushed:
// just before the oldest still-open window, or maxTs when none is open.
func (a *Aggregator) saveState(ctx context.Context, maxTs uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	safeTs := maxTs
	if open := minOpenWindowStart(a.accumulators); open > 0 {
		safeTs = open - 1
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushBatches(ctx context.Context, batch []model.PoolWindowMetrics, pools []model.Pool) error {
	if len(pools) > 0 {
		if err := a.store.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}
	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return nil
}

// flushAccumulator turns a closed window into metrics. The pool row is
// returned only when the replayed reserves are exact.
func (a *Aggregator) flushAccumulator(ctx context.Context, acc *Accumulator) (model.PoolWindowMetrics, *model.Pool) {
	meta := acc.PoolMeta
	decimals0 := a.decimals.resolve(ctx, meta.Asset0, meta.Token0)
	decimals1 := a.decimals.resolve(ctx, meta.Asset1, meta.Token1)

	metrics := model.PoolWindowMetrics{
		ChainID:        acc.ChainID,
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		Volume0:        formatTokenAmount(acc.Volume0, decimals0),
		Volume1:        formatTokenAmount(acc.Volume1, decimals1),
		Fee0:           formatTokenAmount(acc.Fee0, decimals0),
		Fee1:           formatTokenAmount(acc.Fee1, decimals1),
		FeeMethod:      feeMethodExact,
		TVLMethod:      tvlMethodNone,
	}

	reserves := a.reserves[poolKey(acc.PoolID)]
	if reserves == nil || !reserves.Complete {
		a.logger.Debug("reserves not replayable", zap.String("pool", acc.PoolID))
		return metrics, nil
	}

	tvl0 := formatTokenAmount(reserves.Reserve0, decimals0)
	tvl1 := formatTokenAmount(reserves.Reserve1, decimals1)
	metrics.TVL0 = &tvl0
	metrics.TVL1 = &tvl1
	metrics.TVLMethod = tvlMethodReplay
	metrics.FeeRate0 = ratString(feeRate(acc.Fee0, reserves.Reserve0))
	metrics.FeeRate1 = ratString(feeRate(acc.Fee1, reserves.Reserve1))
	metrics.APR = computeAPR(acc.Fee0, acc.Fee1, reserves.Reserve0, reserves.Reserve1, a.cfg.WindowSeconds)

	pool := &model.Pool{
		ChainID:     acc.ChainID,
		PoolID:      acc.PoolID,
		Asset0:      meta.Asset0,
		Asset1:      meta.Asset1,
		Fee:         meta.Fee,
		TotalShares: reserves.TotalShares.String(),
		Reserve0:    reserves.Reserve0.String(),
		Reserve1:    reserves.Reserve1.String(),
	}
	return metrics, pool
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(poolID string) string {
	return strings.ToLower(strings.TrimSpace(poolID))
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
