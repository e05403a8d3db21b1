package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapScope/internal/config"
	"swapScope/internal/replay"
	"swapScope/internal/storage"
	"swapScope/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}
	if cfg.Out == "" && cfg.PGDSN == "" {
		return fmt.Errorf("an output path or pg dsn is required")
	}

	ctx, stop := signalContext()
	defer stop()

	// Postgres inserts are idempotent, so it goes first: a retried batch
	// that already reached it is ignored there.
	var sinks storage.MultiStorage
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
		sinks = append(sinks, store)
		snapshots = store
	} else if cfg.Snapshot != "" {
		snapshots = storage.NewFileSnapshotStore(cfg.Snapshot)
	}
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}

	runner := replay.NewRunner(replay.RunConfig{
		ScriptPath:        cfg.Script,
		ChainID:           cfg.ChainID,
		Account:           cfg.Account,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		Retry: replay.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			MaxBackoff: cfg.MaxBackoff,
		},
	}, sinks, snapshots, logger)

	logger.Info("replay start",
		zap.String("script", cfg.Script),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("replay complete",
		zap.Int("applied", stats.Applied),
		zap.Int("failed", stats.Failed),
		zap.Int("logs", stats.Logs),
	)
	return nil
}
