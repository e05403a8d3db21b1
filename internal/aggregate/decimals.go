package aggregate

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapScope/internal/chain"
	"swapScope/internal/events"
	"swapScope/internal/model"
)

// decimalsResolver looks up asset precision, preferring metadata already
// attached to the record.
type decimalsResolver struct {
	chainClient *chain.Client
	cache       *events.TokenMetaCache
	logger      *zap.Logger
}

func (r *decimalsResolver) resolve(ctx context.Context, asset string, hint *model.TokenMeta) uint8 {
	if hint != nil && hint.Resolved {
		return hint.Decimals
	}
	if !common.IsHexAddress(asset) {
		return 0
	}
	addr := common.HexToAddress(asset)
	if addr != (common.Address{}) && r.chainClient == nil {
		return 0
	}
	return r.cache.ResolveTokenMeta(ctx, r.chainClient, addr, r.logger).Decimals
}
