package events

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapScope/internal/chain"
	"swapScope/internal/model"
)

// NativeDecimals is the precision assumed for the native asset.
const NativeDecimals = 18

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// PoolMetaCache caches pool metadata by pool id. The decoder fills it from
// PoolCreated records; snapshots can seed it for streams that start late.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Hash]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Hash]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(poolID common.Hash) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[poolID]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(poolID common.Hash, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[poolID] = meta
	c.mu.Unlock()
}

// SeedFromSnapshot registers every pool of a state snapshot.
func (c *PoolMetaCache) SeedFromSnapshot(snapshot model.StateSnapshot) {
	for _, pool := range snapshot.Pools {
		c.Set(common.HexToHash(pool.PoolID), model.PoolMeta{
			Asset0: pool.Asset0,
			Asset1: pool.Asset1,
			Fee:    pool.Fee,
		})
	}
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// ResolveTokenMeta returns cached metadata or fetches it. Failed lookups are
// cached too so a broken token is only queried once.
func (c *TokenMetaCache) ResolveTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, logger *zap.Logger) model.TokenMeta {
	if meta, ok := c.Get(token); ok {
		return meta
	}
	meta, err := FetchTokenMeta(ctx, chainClient, token)
	if err != nil && logger != nil {
		logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	c.Set(token, meta)
	return meta
}

// FetchTokenMeta loads token metadata via ERC20 calls. The native asset
// needs no call.
func FetchTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if token == (common.Address{}) {
		meta.Native = true
		meta.Decimals = NativeDecimals
		meta.Symbol = "NATIVE"
		meta.Resolved = true
		return meta, nil
	}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	parsed, err := erc20ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	call := func(method string) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		resp, err := chainClient.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported decimals type %T", values[0])
	}
	meta.Decimals = decimals
	meta.Resolved = true

	if values, err := call("symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	}
	return meta, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
