package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapScope/internal/amm"
	"swapScope/internal/model"
)

// Encoder turns committed receipts into log records. The engine account is
// the emitting address of every record.
type Encoder struct {
	chainID uint64
	address common.Address
	poolABI abi.ABI
}

func NewEncoder(chainID uint64, address common.Address) (*Encoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return &Encoder{chainID: chainID, address: address, poolABI: poolABI}, nil
}

// Encode returns one record per event, indexed in emission order.
func (e *Encoder) Encode(receipt amm.Receipt) ([]model.LogRecord, error) {
	out := make([]model.LogRecord, 0, len(receipt.Events))
	for i, ev := range receipt.Events {
		topics, data, err := e.encodeEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("encode %s at seq %d: %w", ev.EventName(), receipt.Seq, err)
		}
		hexTopics := make([]string, 0, len(topics))
		for _, topic := range topics {
			hexTopics = append(hexTopics, topic.Hex())
		}
		out = append(out, model.LogRecord{
			ChainID:     e.chainID,
			BlockNumber: receipt.Seq,
			TxHash:      receipt.CallHash.Hex(),
			LogIndex:    uint64(i),
			Address:     e.address.Hex(),
			Op:          receipt.Op,
			Sender:      receipt.Sender.Hex(),
			Topics:      hexTopics,
			Data:        hexutil.Encode(data),
			Timestamp:   uint64(receipt.Timestamp.Unix()),
		})
	}
	return out, nil
}

func (e *Encoder) encodeEvent(ev amm.Event) ([]common.Hash, []byte, error) {
	event, ok := e.poolABI.Events[ev.EventName()]
	if !ok {
		return nil, nil, fmt.Errorf("no abi for event %s", ev.EventName())
	}

	var (
		indexed []common.Hash
		values  []interface{}
	)
	switch v := ev.(type) {
	case amm.PoolCreated:
		indexed = []common.Hash{v.PoolID, addressTopic(v.Asset0), addressTopic(v.Asset1)}
		values = []interface{}{new(big.Int).SetUint64(uint64(v.FeeBps)), v.Creator}
	case amm.LiquidityMinted:
		indexed = []common.Hash{v.PoolID, addressTopic(v.Owner)}
		values = []interface{}{v.Liquidity.ToBig(), v.Amount0.ToBig(), v.Amount1.ToBig()}
	case amm.LiquidityBurned:
		indexed = []common.Hash{v.PoolID, addressTopic(v.Owner)}
		values = []interface{}{v.Liquidity.ToBig(), v.Amount0.ToBig(), v.Amount1.ToBig()}
	case amm.Swapped:
		indexed = []common.Hash{v.PoolID, addressTopic(v.User)}
		values = []interface{}{v.InputAmount.ToBig(), v.OutputAmount.ToBig(), v.Fees.ToBig(), v.ZeroForOne}
	default:
		return nil, nil, fmt.Errorf("unsupported event type %T", ev)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return nil, nil, fmt.Errorf("pack: %w", err)
	}
	return append([]common.Hash{event.ID}, indexed...), data, nil
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
