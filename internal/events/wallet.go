// Package events carries discrete wallet and transaction events between the
// chain collaborators and the risk engine over channels.
package events

import (
	"sync"
	"time"

	"github.com/lendmon/lendmon/internal/domain"
)

// Kind discriminates wallet events.
type Kind int

const (
	// AccountChanged the connected account switched (or disconnected when
	// Account is empty).
	AccountChanged Kind = iota
	// ChainChanged the wallet switched networks.
	ChainChanged
	// TxStatusChanged a tracked transaction moved through its lifecycle.
	TxStatusChanged
)

// WalletEvent is one discrete event emitted by the wallet/chain collaborator.
type WalletEvent struct {
	Kind      Kind
	Account   string
	ChainID   int64
	Tx        *domain.TxStatus
	Timestamp time.Time
}

// Bus fans out wallet events to all subscribers via buffered channels. It is
// owned by the composition root and passed in explicitly; slow consumers are
// dropped rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan WalletEvent]struct{}
	buffer int
}

// NewBus creates a bus with the given per-subscriber buffer.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[chan WalletEvent]struct{}),
		buffer: buffer,
	}
}

// Publish sends the event to all subscribers, dropping if a reader is slow.
func (b *Bus) Publish(e WalletEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives events until Unsubscribe is called.
func (b *Bus) Subscribe() chan WalletEvent {
	ch := make(chan WalletEvent, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Bus) Unsubscribe(ch chan WalletEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
