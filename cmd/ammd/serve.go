package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapScope/internal/amm"
	"swapScope/internal/api"
	"swapScope/internal/config"
	"swapScope/internal/events"
	"swapScope/internal/ledger"
	"swapScope/internal/replay"
	"swapScope/internal/storage"
	"swapScope/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	account, err := replay.ParseAddress("account", cfg.Account, false)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var logStores []storage.Storage
	var snapshots storage.SnapshotStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.ChainID)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		logStores = append(logStores, store)
		snapshots = store
	} else if cfg.Snapshot != "" {
		snapshots = storage.NewFileSnapshotStore(cfg.Snapshot)
	}
	if cfg.LogsOut != "" {
		logStores = append(logStores, storage.NewJsonlStorage(cfg.LogsOut))
	}

	state, mem, seq, err := restoreState(ctx, snapshots)
	if err != nil {
		return err
	}

	encoder, err := events.NewEncoder(cfg.ChainID, account)
	if err != nil {
		return err
	}
	sink := events.NewLogSink(encoder, logger, logStores...)
	engine := amm.NewEngine(amm.Config{Account: account, Seq: seq}, state, mem, sink, logger)

	server, err := api.NewServer(api.Config{
		Listen:          cfg.Listen,
		ChainID:         cfg.ChainID,
		Gzip:            cfg.Gzip,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, replay.NewExecutor(engine, mem), snapshots, logger)
	if err != nil {
		return err
	}

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("account", account.Hex()),
		zap.Uint64("seq", seq),
		zap.Int("pools", len(state.Pools())),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("logs_out", cfg.LogsOut),
		zap.Duration("snapshot_interval", cfg.SnapshotInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return server.SnapshotLoop(gctx, cfg.SnapshotInterval)
	})
	return g.Wait()
}

// restoreState loads the last snapshot, or starts empty when there is none.
func restoreState(ctx context.Context, snapshots storage.SnapshotStore) (*amm.State, *ledger.Memory, uint64, error) {
	mem := ledger.NewMemory()
	if snapshots == nil {
		return amm.NewState(), mem, 0, nil
	}
	snapshot, ok, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return amm.NewState(), mem, 0, nil
	}
	state, err := storage.ImportSnapshot(snapshot)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("restore snapshot: %w", err)
	}
	if err := storage.ImportLedger(mem, snapshot.Ledger); err != nil {
		return nil, nil, 0, fmt.Errorf("restore ledger: %w", err)
	}
	return state, mem, snapshot.Seq, nil
}
