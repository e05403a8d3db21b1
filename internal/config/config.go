package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMMD"

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// newViper layers defaults, an optional config file, AMMD_ environment
// variables and command flags, in increasing precedence.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 5)
	v.SetDefault("log-max-age", 30)
	v.SetDefault("chain-id", uint64(31337))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func logConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:      v.GetString("log-level"),
		File:       v.GetString("log-file"),
		MaxSizeMB:  v.GetInt("log-max-size"),
		MaxBackups: v.GetInt("log-max-backups"),
		MaxAgeDays: v.GetInt("log-max-age"),
	}
}

// ServeConfig holds configuration for the HTTP host.
type ServeConfig struct {
	Listen           string
	ChainID          uint64
	Account          string
	Gzip             bool
	LogsOut          string
	PGDSN            string
	Snapshot         string
	SnapshotInterval time.Duration
	ShutdownTimeout  time.Duration
	Log              LogConfig
}

// Load merges config file, environment variables, and flags into ServeConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"listen":            ":8080",
		"gzip":              true,
		"logs-out":          "./data/logs.jsonl",
		"snapshot":          "./data/snapshot.json",
		"snapshot-interval": 30 * time.Second,
		"shutdown-timeout":  10 * time.Second,
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Listen:           v.GetString("listen"),
		ChainID:          v.GetUint64("chain-id"),
		Account:          v.GetString("account"),
		Gzip:             v.GetBool("gzip"),
		LogsOut:          v.GetString("logs-out"),
		PGDSN:            v.GetString("pg-dsn"),
		Snapshot:         v.GetString("snapshot"),
		SnapshotInterval: v.GetDuration("snapshot-interval"),
		ShutdownTimeout:  v.GetDuration("shutdown-timeout"),
		Log:              logConfig(v),
	}, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Script            string
	ChainID           uint64
	Account           string
	BatchSize         uint64
	Out               string
	PGDSN             string
	Snapshot          string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	MaxBackoff        time.Duration
	Log               LogConfig
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(500),
		"out":                "./data/logs.jsonl",
		"snapshot":           "./data/snapshot.json",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"max-backoff":        10 * time.Second,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Script:            v.GetString("script"),
		ChainID:           v.GetUint64("chain-id"),
		Account:           v.GetString("account"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Snapshot:          v.GetString("snapshot"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MaxBackoff:        v.GetDuration("max-backoff"),
		Log:               logConfig(v),
	}, nil
}

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL           string
	In               string
	Out              string
	Errors           string
	Snapshot         string
	Topic0Map        map[string]string
	IncludeTokenMeta bool
	Log              LogConfig
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/typed_events.jsonl",
		"errors":             "./data/decode_errors.jsonl",
		"include-token-meta": false,
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		RPCURL:           v.GetString("rpc"),
		In:               v.GetString("in"),
		Out:              v.GetString("out"),
		Errors:           v.GetString("errors"),
		Snapshot:         v.GetString("snapshot"),
		Topic0Map:        getStringMap(v, "topic0-map"),
		IncludeTokenMeta: v.GetBool("include-token-meta"),
		Log:              logConfig(v),
	}, nil
}

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	RPCURL        string
	Input         string
	Window        time.Duration
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	Log           LogConfig
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size": 1000,
		"window":     5 * time.Minute,
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	return AggregateConfig{
		RPCURL:        v.GetString("rpc"),
		Input:         v.GetString("in"),
		Window:        v.GetDuration("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		Log:           logConfig(v),
	}, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if val, err := strconv.ParseUint(input, 10, 64); err == nil {
		return val, nil
	}
	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is neither unix seconds nor RFC3339", input)
	}
	return uint64(tm.Unix()), nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}
	switch typed := v.Get(key).(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, val := range typed {
			out[k] = fmt.Sprintf("%v", val)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

// parseStringMap reads "key=value,key=value" pairs, skipping malformed ones.
func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(input, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
