package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapScope/internal/model"
)

// Store provides Postgres persistence for pools, event logs, window
// metrics and engine snapshots.
type Store struct {
	pool    *pgxpool.Pool
	chainID uint64
}

func NewStore(ctx context.Context, dsn string, chainID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutLogBatch inserts event logs, ignoring records already stored.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		batch.Queue(`
			INSERT INTO pool_events (
				chain_id, seq, log_index, call_hash, op, sender, topics, data, ts, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (chain_id, seq, log_index) DO NOTHING
		`,
			int64(log.ChainID),
			int64(log.BlockNumber),
			int64(log.LogIndex),
			log.TxHash,
			log.Op,
			log.Sender,
			log.Topics,
			log.Data,
			int64(log.Timestamp),
		)
	}
	return s.sendBatch(ctx, batch)
}

const upsertPoolSQL = `
	INSERT INTO pools (
		chain_id, pool_id, asset0, asset1, fee, total_shares, reserve0, reserve1, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, now(), now())
	ON CONFLICT (chain_id, pool_id)
	DO UPDATE SET
		total_shares = EXCLUDED.total_shares,
		reserve0 = EXCLUDED.reserve0,
		reserve1 = EXCLUDED.reserve1,
		updated_at = now()
`

func poolArgs(pool model.Pool) []interface{} {
	return []interface{}{
		int64(pool.ChainID),
		pool.PoolID,
		pool.Asset0,
		pool.Asset1,
		int32(pool.Fee),
		pool.TotalShares,
		pool.Reserve0,
		pool.Reserve1,
	}
}

// UpsertPools inserts or updates pool state.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(upsertPoolSQL, poolArgs(pool)...)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				chain_id, pool_id, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume0, volume1, fee0, fee1, fee_rate0, fee_rate1,
				tvl0, tvl1, apr, fee_method, tvl_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (chain_id, pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				tvl0 = EXCLUDED.tvl0,
				tvl1 = EXCLUDED.tvl1,
				apr = EXCLUDED.apr,
				fee_method = EXCLUDED.fee_method,
				tvl_method = EXCLUDED.tvl_method,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.PoolID,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.FeeRate0,
			m.FeeRate1,
			m.TVL0,
			m.TVL1,
			m.APR,
			m.FeeMethod,
			m.TVLMethod,
		)
	}
	return s.sendBatch(ctx, batch)
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM processor_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processor_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

// LoadSnapshot returns the latest engine snapshot of the store's chain.
func (s *Store) LoadSnapshot(ctx context.Context) (model.StateSnapshot, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM engine_snapshots WHERE chain_id=$1`, int64(s.chainID))
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StateSnapshot{}, false, nil
		}
		return model.StateSnapshot{}, false, err
	}
	var snapshot model.StateSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.StateSnapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, true, nil
}

// SaveSnapshot stores the snapshot and refreshes the pools table in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot model.StateSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO engine_snapshots (chain_id, seq, snapshot, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (chain_id) DO UPDATE
			SET seq = EXCLUDED.seq, snapshot = EXCLUDED.snapshot, updated_at = now()
			WHERE engine_snapshots.seq <= EXCLUDED.seq
		`, int64(s.chainID), int64(snapshot.Seq), data); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		for _, pool := range snapshot.Pools {
			if _, err := tx.Exec(ctx, upsertPoolSQL, poolArgs(pool.Pool)...); err != nil {
				return fmt.Errorf("upsert pool %s: %w", pool.PoolID, err)
			}
		}
		return nil
	})
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
