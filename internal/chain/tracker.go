package chain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/events"
)

// DefaultReceiptPoll is the interval between receipt lookups while awaiting
// confirmation.
const DefaultReceiptPoll = 2 * time.Second

// ReceiptGetter is the subset of ethclient.Client the tracker depends on.
type ReceiptGetter interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Tracker follows submitted transactions through the Pending -> Confirmed |
// Failed lifecycle. When confirmation does not arrive within the caller's
// timeout the status becomes Unconfirmed; it is never silently reverted to a
// pre-submission state.
type Tracker struct {
	client ReceiptGetter
	poll   time.Duration
	bus    *events.Bus
	logger *zap.Logger

	mu       sync.Mutex
	statuses map[string]domain.TxStatus
}

// NewTracker creates a tracker. bus may be nil when nobody listens for
// status events.
func NewTracker(client ReceiptGetter, poll time.Duration, bus *events.Bus, logger *zap.Logger) *Tracker {
	if poll <= 0 {
		poll = DefaultReceiptPoll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		client:   client,
		poll:     poll,
		bus:      bus,
		logger:   logger,
		statuses: make(map[string]domain.TxStatus),
	}
}

// Track registers a freshly submitted transaction as pending.
func (t *Tracker) Track(ref string) domain.TxStatus {
	status := domain.TxStatus{Ref: ref, State: domain.TxPending, UpdatedAt: time.Now()}
	t.update(status)
	return status
}

// Status returns the last known status of ref.
func (t *Tracker) Status(ref string) (domain.TxStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[ref]
	if !ok {
		return domain.TxStatus{}, errors.Wrapf(domain.ErrNotFound, "transaction %s", ref)
	}
	return status, nil
}

// Await polls for the receipt of ref until it is mined or timeout elapses.
// On timeout the status transitions to Unconfirmed and domain.ErrTimeout is
// returned; the underlying transaction is never resubmitted here.
func (t *Tracker) Await(ctx context.Context, ref string, timeout time.Duration) (domain.TxStatus, error) {
	deadline := time.Now().Add(timeout)
	hash := common.HexToHash(ref)

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		receipt, err := t.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			state := domain.TxConfirmed
			if receipt.Status == types.ReceiptStatusFailed {
				state = domain.TxFailed
			}
			status := domain.TxStatus{
				Ref:         ref,
				State:       state,
				UpdatedAt:   time.Now(),
				BlockNumber: receipt.BlockNumber.Uint64(),
			}
			t.update(status)
			return status, nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			// receipt not found yet is the normal pending case
			t.logger.Debug("receipt not available yet", zap.String("ref", ref), zap.Error(err))
		}

		if time.Now().After(deadline) {
			status := domain.TxStatus{Ref: ref, State: domain.TxUnconfirmed, UpdatedAt: time.Now()}
			t.update(status)
			return status, errors.Wrapf(domain.ErrTimeout, "transaction %s unconfirmed after %s", ref, timeout)
		}

		select {
		case <-ctx.Done():
			status := domain.TxStatus{Ref: ref, State: domain.TxUnconfirmed, UpdatedAt: time.Now()}
			t.update(status)
			return status, errors.Wrapf(domain.ErrTimeout, "context done awaiting %s", ref)
		case <-ticker.C:
		}
	}
}

func (t *Tracker) update(status domain.TxStatus) {
	t.mu.Lock()
	t.statuses[status.Ref] = status
	t.mu.Unlock()

	if t.bus != nil {
		tx := status
		t.bus.Publish(events.WalletEvent{Kind: events.TxStatusChanged, Tx: &tx})
	}
}
