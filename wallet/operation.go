package wallet

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

// OpState is the progress of the operation in flight
type OpState int

const (
	OpIdle OpState = iota
	OpValidating
	OpBuilding
	OpSubmitting
	OpAwaitingFinality
	OpRefreshing
	OpDone
	OpFailed
)

var opStateNames = [...]string{
	OpIdle:             "idle",
	OpValidating:       "validating",
	OpBuilding:         "building",
	OpSubmitting:       "submitting",
	OpAwaitingFinality: "awaiting_finality",
	OpRefreshing:       "refreshing",
	OpDone:             "done",
	OpFailed:           "failed",
}

func (s OpState) String() string {
	if int(s) < len(opStateNames) {
		return opStateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state name in JSON
func (s OpState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Operation describes the last state-changing operation
type Operation struct {
	Name      string    `json:"name,omitempty"`
	State     OpState   `json:"state"`
	TxHash    string    `json:"txHash,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// tracker is the non-reentrant guard plus the observable operation record
type tracker struct {
	busy   atomic.Bool
	mu     sync.RWMutex
	op     Operation
	clock  clock.Clock
	logger *zap.Logger
}

func (t *tracker) current() Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.op
}

// begin claims the guard. Every successful begin must be paired with run.finish.
func (t *tracker) begin(name string) (*run, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}

	now := t.clock.Now()
	t.mu.Lock()
	t.op = Operation{Name: name, State: OpValidating, StartedAt: now, UpdatedAt: now}
	t.mu.Unlock()

	t.logger.Info("Operation started", zap.String("op", name), zap.Stringer("state", OpValidating))
	return &run{t: t, name: name}, nil
}

type run struct {
	t    *tracker
	name string
}

func (r *run) to(state OpState) {
	r.t.mu.Lock()
	r.t.op.State = state
	r.t.op.UpdatedAt = r.t.clock.Now()
	txHash := r.t.op.TxHash
	r.t.mu.Unlock()

	r.t.logger.Debug("Operation progress",
		zap.String("op", r.name),
		zap.Stringer("state", state),
		zap.String("tx_hash", txHash))
}

func (r *run) submitted(txHash string) {
	r.t.mu.Lock()
	r.t.op.TxHash = txHash
	r.t.mu.Unlock()

	r.t.logger.Info("Transaction submitted", zap.String("op", r.name), zap.String("tx_hash", txHash))
	r.to(OpAwaitingFinality)
}

func (r *run) finish(err error) {
	state := OpDone
	if err != nil {
		state = OpFailed
	}

	r.t.mu.Lock()
	r.t.op.State = state
	r.t.op.UpdatedAt = r.t.clock.Now()
	if err != nil {
		r.t.op.Error = err.Error()
	}
	txHash := r.t.op.TxHash
	r.t.mu.Unlock()

	fields := []zap.Field{zap.String("op", r.name), zap.Stringer("state", state), zap.String("tx_hash", txHash)}
	if err != nil {
		r.t.logger.Warn("Operation failed", append(fields, zap.Error(err))...)
	} else {
		r.t.logger.Info("Operation finished", fields...)
	}

	r.t.busy.Store(false)
}
