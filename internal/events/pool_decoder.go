package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapScope/internal/amm"
	"swapScope/internal/model"
)

// ErrUnknownPool is returned for records of a pool whose PoolCreated record
// was never seen.
var ErrUnknownPool = errors.New("unknown pool")

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Topic0Map adds aliases from extra topic0 values to event names.
	Topic0Map map[string]string
}

// PoolDecoder decodes the engine's pool events.
type PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewPoolDecoder builds a pool event decoder.
func NewPoolDecoder(cfg DecoderConfig) (*PoolDecoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) < 2 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	switch name {
	case amm.EventPoolCreated:
		poolID, decoded, err := d.decodePoolCreated(log)
		if err != nil {
			return nil, err
		}
		meta := model.PoolMeta{Asset0: decoded.Asset0, Asset1: decoded.Asset1, Fee: decoded.Fee}
		if ctx.PoolMetaCache != nil {
			ctx.PoolMetaCache.Set(poolID, meta)
		}
		return buildTypedEvent(log, name, poolID, decoded, withTokenMeta(ctx, meta)), nil
	case amm.EventLiquidityMinted, amm.EventLiquidityBurned:
		poolID, decoded, err := d.decodeLiquidity(name, log)
		if err != nil {
			return nil, err
		}
		meta, err := getPoolMeta(ctx, poolID)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, poolID, decoded, meta), nil
	case amm.EventSwap:
		poolID, decoded, err := d.decodeSwap(log)
		if err != nil {
			return nil, err
		}
		meta, err := getPoolMeta(ctx, poolID)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, poolID, decoded, meta), nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "poolcreated", "pool_created":
		return amm.EventPoolCreated
	case "liquidityminted", "liquidity_minted", "mint":
		return amm.EventLiquidityMinted
	case "liquidityburned", "liquidity_burned", "burn":
		return amm.EventLiquidityBurned
	case "swap":
		return amm.EventSwap
	default:
		return ""
	}
}

func getPoolMeta(ctx DecodeContext, poolID common.Hash) (model.PoolMeta, error) {
	if ctx.PoolMetaCache == nil {
		return model.PoolMeta{}, fmt.Errorf("%w: %s", ErrUnknownPool, poolID.Hex())
	}
	meta, ok := ctx.PoolMetaCache.Get(poolID)
	if !ok {
		return model.PoolMeta{}, fmt.Errorf("%w: %s", ErrUnknownPool, poolID.Hex())
	}
	return withTokenMeta(ctx, meta), nil
}

func withTokenMeta(ctx DecodeContext, meta model.PoolMeta) model.PoolMeta {
	if !ctx.IncludeTokenMeta || ctx.TokenMetaCache == nil {
		return meta
	}
	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}
	token0 := ctx.TokenMetaCache.ResolveTokenMeta(callCtx, ctx.Chain, common.HexToAddress(meta.Asset0), ctx.Logger)
	token1 := ctx.TokenMetaCache.ResolveTokenMeta(callCtx, ctx.Chain, common.HexToAddress(meta.Asset1), ctx.Logger)
	meta.Token0 = &token0
	meta.Token1 = &token1
	return meta
}

func buildTypedEvent(log model.LogRecord, name string, poolID common.Hash, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		PoolID:      poolID.Hex(),
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}
}

func (d *PoolDecoder) decodePoolCreated(log model.LogRecord) (common.Hash, model.PoolCreatedEventData, error) {
	event := d.poolABI.Events[amm.EventPoolCreated]
	var indexed struct {
		PoolId [32]byte
		Asset0 common.Address
		Asset1 common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return common.Hash{}, model.PoolCreatedEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return common.Hash{}, model.PoolCreatedEventData{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return common.Hash{}, model.PoolCreatedEventData{}, err
	}
	creator, err := asAddress(values[1])
	if err != nil {
		return common.Hash{}, model.PoolCreatedEventData{}, err
	}

	return common.Hash(indexed.PoolId), model.PoolCreatedEventData{
		Asset0:  indexed.Asset0.Hex(),
		Asset1:  indexed.Asset1.Hex(),
		Fee:     uint32(fee.Uint64()),
		Creator: creator.Hex(),
	}, nil
}

func (d *PoolDecoder) decodeLiquidity(name string, log model.LogRecord) (common.Hash, model.LiquidityEventData, error) {
	event := d.poolABI.Events[name]
	var indexed struct {
		PoolId [32]byte
		Owner  common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return common.Hash{}, model.LiquidityEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return common.Hash{}, model.LiquidityEventData{}, err
	}
	amounts := make([]string, 0, 3)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return common.Hash{}, model.LiquidityEventData{}, err
		}
		amounts = append(amounts, amount.String())
	}

	return common.Hash(indexed.PoolId), model.LiquidityEventData{
		Owner:     indexed.Owner.Hex(),
		Liquidity: amounts[0],
		Amount0:   amounts[1],
		Amount1:   amounts[2],
	}, nil
}

func (d *PoolDecoder) decodeSwap(log model.LogRecord) (common.Hash, model.SwapEventData, error) {
	event := d.poolABI.Events[amm.EventSwap]
	var indexed struct {
		PoolId [32]byte
		User   common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return common.Hash{}, model.SwapEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 4)
	if err != nil {
		return common.Hash{}, model.SwapEventData{}, err
	}
	amounts := make([]string, 0, 3)
	for _, value := range values[:3] {
		amount, err := asBigInt(value)
		if err != nil {
			return common.Hash{}, model.SwapEventData{}, err
		}
		amounts = append(amounts, amount.String())
	}
	zeroForOne, ok := values[3].(bool)
	if !ok {
		return common.Hash{}, model.SwapEventData{}, fmt.Errorf("unsupported bool type %T", values[3])
	}

	return common.Hash(indexed.PoolId), model.SwapEventData{
		User:         indexed.User.Hex(),
		InputAmount:  amounts[0],
		OutputAmount: amounts[1],
		Fees:         amounts[2],
		ZeroForOne:   zeroForOne,
	}, nil
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexedArgs := indexedArguments(event.Inputs)
	if len(topics) != len(indexedArgs)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexedArgs)+1, len(topics))
	}
	hashes, err := parseTopicHashes(topics[1:])
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexedArgs, hashes); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string, want int) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}
