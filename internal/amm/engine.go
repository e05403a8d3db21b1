package amm

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const (
	OpCreatePool      = "create_pool"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
)

// Call carries the caller identity and the native value attached to an
// operation.
type Call struct {
	Sender common.Address
	Value  *uint256.Int
}

func (c Call) hasValue() bool {
	return c.Value != nil && !c.Value.IsZero()
}

// Config configures an Engine.
type Config struct {
	// Account holds every pool's assets on the ledger.
	Account common.Address
	// Seq is the sequence number of the last committed call.
	Seq uint64
	Now func() time.Time
}

// Engine executes AMM operations against a State and a Ledger.
//
// Each public mutating operation is atomic: registry writes, ledger writes
// (when the ledger is a Snapshotter) and emitted events are rolled back on
// any error. Operations may be re-entered from inside a ledger call. The
// engine is not safe for concurrent use; hosts serialize calls.
type Engine struct {
	cfg    Config
	state  *State
	ledger Ledger
	sink   Sink
	logger *zap.Logger

	frames  []*frame
	pending []Event
}

type frame struct {
	op            string
	call          Call
	checkpoint    int
	ledgerSnap    int
	hasLedgerSnap bool
	eventStart    int
	valueConsumed bool
}

// NewEngine builds an Engine. sink may be nil.
func NewEngine(cfg Config, state *State, ledger Ledger, sink Sink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if state == nil {
		state = NewState()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		cfg:    cfg,
		state:  state,
		ledger: ledger,
		sink:   sink,
		logger: logger,
	}
}

// Account returns the ledger account holding pooled assets.
func (e *Engine) Account() common.Address {
	return e.cfg.Account
}

// State exposes the registry for read-only views and snapshots.
func (e *Engine) State() *State {
	return e.state
}

// Seq returns the sequence number of the last committed call.
func (e *Engine) Seq() uint64 {
	return e.cfg.Seq
}

// Pool returns a copy of a pool's scalar state.
func (e *Engine) Pool(id common.Hash) (Pool, bool) {
	return e.state.Pool(id)
}

// PositionShares returns owner's shares in a pool.
func (e *Engine) PositionShares(poolID common.Hash, owner common.Address) *uint256.Int {
	return e.state.PositionShares(poolID, owner)
}

func (e *Engine) begin(ctx context.Context, op string, call Call) (*frame, error) {
	f := &frame{
		op:         op,
		call:       call,
		checkpoint: e.state.checkpoint(),
		eventStart: len(e.pending),
	}
	if snap, ok := e.ledger.(Snapshotter); ok {
		f.ledgerSnap = snap.Snapshot()
		f.hasLedgerSnap = true
	}
	e.frames = append(e.frames, f)

	if call.hasValue() {
		if err := e.ledger.TransferNative(ctx, call.Sender, e.cfg.Account, call.Value); err != nil {
			return f, &TransferError{Asset: NativeAsset, From: call.Sender, To: e.cfg.Account, Amount: call.Value, Err: err}
		}
	}
	return f, nil
}

func (e *Engine) finish(ctx context.Context, f *frame, err error) error {
	if err == nil && f.call.hasValue() && !f.valueConsumed {
		err = fmt.Errorf("%w: %s", ErrUnexpectedNativeValue, f.call.Value.Dec())
	}
	e.frames = e.frames[:len(e.frames)-1]

	if err != nil {
		e.state.revertTo(f.checkpoint)
		if f.hasLedgerSnap {
			e.ledger.(Snapshotter).RevertToSnapshot(f.ledgerSnap)
		}
		e.pending = e.pending[:f.eventStart]
		e.logger.Debug("call reverted",
			zap.String("op", f.op),
			zap.String("sender", f.call.Sender.Hex()),
			zap.Int("depth", len(e.frames)),
			zap.Error(err),
		)
		return err
	}

	if len(e.frames) > 0 {
		return nil
	}

	e.state.commit()
	if snap, ok := e.ledger.(Snapshotter); ok {
		snap.Commit()
	}
	events := e.pending
	e.pending = nil
	e.cfg.Seq++

	receipt := Receipt{
		Seq:       e.cfg.Seq,
		CallHash:  callHash(e.cfg.Seq, f.call.Sender, f.op),
		Op:        f.op,
		Sender:    f.call.Sender,
		Timestamp: e.cfg.Now().UTC(),
		Events:    events,
	}
	if e.sink != nil {
		if err := e.sink.Publish(ctx, receipt); err != nil {
			e.logger.Warn("publish receipt", zap.Uint64("seq", receipt.Seq), zap.String("op", f.op), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) emit(event Event) {
	e.pending = append(e.pending, event)
}

func (e *Engine) currentFrame() *frame {
	if len(e.frames) == 0 {
		return nil
	}
	return e.frames[len(e.frames)-1]
}

func callHash(seq uint64, sender common.Address, op string) common.Hash {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	return crypto.Keccak256Hash(seqBytes[:], sender.Bytes(), []byte(op))
}
