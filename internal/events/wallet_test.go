package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus(4)
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer bus.Unsubscribe(a)
	defer bus.Unsubscribe(b)

	bus.Publish(WalletEvent{Kind: AccountChanged, Account: "0xabc"})

	for _, sub := range []chan WalletEvent{a, b} {
		select {
		case e := <-sub:
			require.Equal(t, AccountChanged, e.Kind)
			require.Equal(t, "0xabc", e.Account)
			require.False(t, e.Timestamp.IsZero(), "publish must stamp the event")
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBus_DropsSlowConsumer(t *testing.T) {
	bus := NewBus(1)
	slow := bus.Subscribe()
	defer bus.Unsubscribe(slow)

	bus.Publish(WalletEvent{Kind: ChainChanged, ChainID: 1})
	bus.Publish(WalletEvent{Kind: ChainChanged, ChainID: 10}) // buffer full, dropped

	e := <-slow
	require.Equal(t, int64(1), e.ChainID)

	select {
	case e := <-slow:
		t.Fatalf("expected the second event to be dropped, got chain id %d", e.ChainID)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	_, open := <-sub
	require.False(t, open, "unsubscribed channel must be closed")

	// publishing after unsubscribe must not panic
	bus.Publish(WalletEvent{Kind: AccountChanged})
}
