package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swapScope/internal/amm"
	"swapScope/internal/storage"
)

// LogSink encodes committed receipts and writes them to every store.
type LogSink struct {
	encoder *Encoder
	stores  []storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

func NewLogSink(encoder *Encoder, logger *zap.Logger, stores ...storage.Storage) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{encoder: encoder, stores: stores, logger: logger, now: time.Now}
}

// Publish implements amm.Sink.
func (s *LogSink) Publish(ctx context.Context, receipt amm.Receipt) error {
	logs, err := s.encoder.Encode(receipt)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}
	ingestedAt := s.now().UTC().Format(time.RFC3339Nano)
	for i := range logs {
		logs[i].IngestedAt = ingestedAt
	}
	for _, store := range s.stores {
		if err := store.PutLogBatch(ctx, logs); err != nil {
			return fmt.Errorf("store logs for seq %d: %w", receipt.Seq, err)
		}
	}
	s.logger.Debug("receipt published", zap.Uint64("seq", receipt.Seq), zap.Int("logs", len(logs)))
	return nil
}
