package storage

import (
	"context"

	"swapScope/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// SnapshotStore persists the registry between runs.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (model.StateSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, snapshot model.StateSnapshot) error
}

// MultiStorage writes every batch to each store in order.
type MultiStorage []Storage

func (m MultiStorage) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, store := range m {
		if err := store.PutLogBatch(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}
