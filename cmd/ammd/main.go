package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"swapScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "ammd",
		Short:        "Constant-product AMM engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Uint64("chain-id", 31337, "chain id stamped on emitted logs")
	serveCmd.Flags().String("account", "", "ledger account holding pooled assets")
	serveCmd.Flags().Bool("gzip", true, "gzip responses")
	serveCmd.Flags().String("logs-out", "./data/logs.jsonl", "emitted logs JSONL path (empty disables)")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for logs and snapshots")
	serveCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path when no Postgres DSN is set")
	serveCmd.Flags().Duration("snapshot-interval", 30*time.Second, "snapshot period (0 disables)")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	addLogFlags(serveCmd.Flags())

	root.AddCommand(serveCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operations script and write the emitted logs",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("script", "", "operations JSONL path")
	replayCmd.Flags().Uint64("chain-id", 31337, "chain id stamped on emitted logs")
	replayCmd.Flags().String("account", "", "ledger account holding pooled assets")
	replayCmd.Flags().Uint64("batch-size", 500, "script lines per batch")
	replayCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for logs and snapshots")
	replayCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path when no Postgres DSN is set")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().Duration("max-backoff", 10*time.Second, "retry backoff cap")
	addLogFlags(replayCmd.Flags())

	root.AddCommand(replayCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode emitted logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "RPC URL for token metadata (optional)")
	decodeCmd.Flags().String("in", "", "input logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("snapshot", "", "snapshot file used to seed pool metadata")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Bool("include-token-meta", false, "attach token decimals and symbols")
	addLogFlags(decodeCmd.Flags())

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate typed events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("rpc", "", "RPC URL for token decimals (optional)")
	aggregateCmd.Flags().String("in", "", "input typed events JSONL")
	aggregateCmd.Flags().Duration("window", 5*time.Minute, "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	addLogFlags(aggregateCmd.Flags())

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLogFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write logs to this rotated file")
	flags.Int("log-max-size", 100, "log file size in megabytes before rotation")
	flags.Int("log-max-backups", 5, "rotated log files to keep")
	flags.Int("log-max-age", 30, "days to keep rotated log files")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(logCfg.Level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logCfg.File == "" {
		return cfg.Build()
	}

	rotator := &lumberjack.Logger{
		Filename:   logCfg.File,
		MaxSize:    logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
		MaxAge:     logCfg.MaxAgeDays,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(rotator), cfg.Level)
	return cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
