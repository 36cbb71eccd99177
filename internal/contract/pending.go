package contract

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/chatbuddy/internal/metrics"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// Stage is how far a mutating call has progressed.
type Stage int

// Transaction stages.
const (
	StageSubmitted Stage = iota + 1
	StageFinalized
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageSubmitted:
		return "submitted"
	case StageFinalized:
		return "finalized"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PendingTx is the handle returned by a mutating call once the node has
// accepted the transaction. Wait blocks until it is mined.
type PendingTx struct {
	method  string
	tx      *types.Transaction
	backend bind.DeployBackend
	metrics *metrics.Metrics

	mu      sync.Mutex
	stage   Stage
	receipt *types.Receipt
}

func newPendingTx(method string, tx *types.Transaction, backend bind.DeployBackend, m *metrics.Metrics) *PendingTx {
	m.RecordTxSubmitted()
	return &PendingTx{
		method:  method,
		tx:      tx,
		backend: backend,
		metrics: m,
		stage:   StageSubmitted,
	}
}

// Method returns the contract method that produced the transaction.
func (p *PendingTx) Method() string {
	return p.method
}

// Hash returns the transaction hash.
func (p *PendingTx) Hash() common.Hash {
	return p.tx.Hash()
}

// Stage returns the current stage.
func (p *PendingTx) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Receipt returns the receipt once the transaction is finalized.
func (p *PendingTx) Receipt() *types.Receipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.receipt
}

// Wait blocks until the transaction is mined, ctx is done or timeout elapses.
// A zero timeout waits for ctx alone. A reverted transaction, a wait error and
// a timeout all return ErrTransactionFailed with the stage in its details.
// A timeout leaves the stage at StageSubmitted; the others set StageFailed.
// Calling Wait again after finalization returns the cached receipt.
func (p *PendingTx) Wait(ctx context.Context, timeout time.Duration) (*types.Receipt, error) {
	p.mu.Lock()
	if p.stage == StageFinalized {
		r := p.receipt
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err == nil && receipt.Status != types.ReceiptStatusSuccessful {
		err = errReverted
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.RecordTxFinalized(err)
	if err != nil {
		// A transaction that was not mined in time may still be.
		if !errors.Is(err, context.DeadlineExceeded) {
			p.stage = StageFailed
		}
		return nil, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrTransactionFailed, err), map[string]string{
			"method":  p.method,
			"tx_hash": p.tx.Hash().Hex(),
			"stage":   p.stage.String(),
		})
	}
	p.stage = StageFinalized
	p.receipt = receipt
	return receipt, nil
}
