package domain

import "time"

// TxState is the lifecycle state of a submitted transaction. A transaction
// starts Pending and transitions to Confirmed or Failed on the chain
// confirmation signal. If the signal never arrives within the caller's
// timeout the transaction is reported Unconfirmed; state is never silently
// reverted and value-transferring submissions are never retried
// automatically.
type TxState int

const (
	// TxPending submitted, awaiting confirmation.
	TxPending TxState = iota
	// TxConfirmed mined successfully.
	TxConfirmed
	// TxFailed mined but reverted.
	TxFailed
	// TxUnconfirmed confirmation did not arrive within the timeout.
	TxUnconfirmed
)

// String returns the string representation.
func (s TxState) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	case TxUnconfirmed:
		return "unconfirmed"
	}
	return "unknown"
}

// TxStatus is the tracked status of one submitted transaction.
type TxStatus struct {
	Ref       string    `json:"ref"`
	State     TxState   `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
	// BlockNumber set once mined.
	BlockNumber uint64 `json:"block_number,omitempty"`
}
