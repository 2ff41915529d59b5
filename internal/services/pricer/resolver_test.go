package pricer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lendmon/lendmon/internal/domain"
)

// fakeSource is a scriptable price source counting upstream calls.
type fakeSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (f *fakeSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Decimal{}, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Decimal{}, errors.Errorf("unknown symbol %s", symbol)
	}
	return price, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestResolver_FreshHitSkipsSource(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3200)}}
	resolver := NewResolver(source, time.Minute, time.Second, nil)
	ctx := context.Background()

	q, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)
	require.True(t, q.Price.Equal(decimal.NewFromInt(3200)))
	require.False(t, q.Stale)

	_, err = resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)
	require.Equal(t, 1, source.callCount(), "fresh cache hit must not call the source")
}

func TestResolver_ExpiredEntryRefetches(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3200)}}
	resolver := NewResolver(source, 10*time.Millisecond, time.Second, nil)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)
	require.Equal(t, 2, source.callCount(), "expired entry must trigger a refetch")
}

func TestResolver_StaleFallbackOnRefreshFailure(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3200)}}
	resolver := NewResolver(source, 10*time.Millisecond, time.Second, nil)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)

	source.setErr(errors.New("feed down"))
	time.Sleep(20 * time.Millisecond)

	q, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err, "stale cache must serve as fallback")
	require.True(t, q.Stale)
	require.True(t, q.Price.Equal(decimal.NewFromInt(3200)))
}

func TestResolver_UnavailableWhenNothingCached(t *testing.T) {
	source := &fakeSource{err: errors.New("feed down")}
	resolver := NewResolver(source, time.Minute, time.Second, nil)

	_, err := resolver.Resolve(context.Background(), "ETH")
	require.True(t, errors.Is(err, domain.ErrPriceUnavailable),
		"no cache and failed fetch must map to ErrPriceUnavailable")
}

func TestResolver_RejectsNonPositivePrice(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{"ETH": decimal.Zero}}
	resolver := NewResolver(source, time.Minute, time.Second, nil)

	_, err := resolver.Resolve(context.Background(), "ETH")
	require.True(t, errors.Is(err, domain.ErrPriceUnavailable),
		"a zero price must never be served as a quote")
}

// blockingSource parks GetPrice on gate when set, signalling entered first.
type blockingSource struct {
	mu      sync.Mutex
	price   decimal.Decimal
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (b *blockingSource) GetPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	b.mu.Lock()
	b.calls++
	gate, entered := b.gate, b.entered
	b.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}
	return b.price, nil
}

func (b *blockingSource) block() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	b.entered = make(chan struct{}, 1)
	return b.gate
}

func (b *blockingSource) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestResolver_BoundedWaitOnInflightRefresh(t *testing.T) {
	source := &blockingSource{price: decimal.NewFromInt(3200)}
	gate := source.block()
	resolver := NewResolver(source, time.Minute, 100*time.Millisecond, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = resolver.Resolve(ctx, "ETH") // leader, parked in the source
	}()
	<-source.entered

	start := time.Now()
	_, err := resolver.Resolve(ctx, "ETH")
	elapsed := time.Since(start)

	require.True(t, errors.Is(err, domain.ErrPriceUnavailable),
		"waiter with an empty cache must fail, not block on the leader")
	require.Less(t, elapsed, 500*time.Millisecond, "waiter must return within the refresh wait")
	require.Equal(t, 1, source.callCount(), "waiter must not start a second upstream fetch")

	close(gate)
	wg.Wait()

	q, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)
	require.True(t, q.Price.Equal(decimal.NewFromInt(3200)), "leader result must be served once released")
	require.Equal(t, 1, source.callCount())
}

func TestResolver_WaiterFallsBackToStaleCache(t *testing.T) {
	source := &blockingSource{price: decimal.NewFromInt(3200)}
	resolver := NewResolver(source, 20*time.Millisecond, 100*time.Millisecond, nil)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond) // let the entry expire
	gate := source.block()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = resolver.Resolve(ctx, "ETH") // leader refreshing the expired entry
	}()
	<-source.entered

	q, err := resolver.Resolve(ctx, "ETH")
	require.NoError(t, err, "waiter must fall back to the stale cache")
	require.True(t, q.Stale)
	require.True(t, q.Price.Equal(decimal.NewFromInt(3200)))
	require.Equal(t, 2, source.callCount(), "only the initial fetch and the leader refresh hit the source")

	close(gate)
	wg.Wait()
}

func TestResolver_ResolveAll(t *testing.T) {
	source := &fakeSource{prices: map[string]decimal.Decimal{
		"ETH":  decimal.NewFromInt(3200),
		"USDC": decimal.NewFromInt(1),
	}}
	resolver := NewResolver(source, time.Minute, time.Second, nil)

	quotes := resolver.ResolveAll(context.Background(), []string{"ETH", "USDC", "ETH", "SHIB"})
	require.Len(t, quotes, 2, "unpriceable symbols must be omitted, duplicates resolved once")
	require.Contains(t, quotes, "ETH")
	require.Contains(t, quotes, "USDC")
	require.Equal(t, 3, source.callCount(), "ETH once, USDC once, SHIB once")
}
