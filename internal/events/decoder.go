package events

import (
	"context"

	"go.uber.org/zap"

	"swapScope/internal/chain"
	"swapScope/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	Context        context.Context
	Chain          *chain.Client
	PoolMetaCache  *PoolMetaCache
	TokenMetaCache *TokenMetaCache
	Logger         *zap.Logger
	// IncludeTokenMeta attaches token decimals and symbols to PoolMeta.
	IncludeTokenMeta bool
}
