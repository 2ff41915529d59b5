package pricer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lendmon/lendmon/internal/domain"
)

const (
	// DefaultTTL is how long a fetched price counts as fresh.
	DefaultTTL = 60 * time.Second
	// DefaultRefreshWait bounds how long a reader blocks on a refresh
	// already in flight before falling back to the cache.
	DefaultRefreshWait = 3 * time.Second
)

// Quote is a resolved price with its cache metadata. A stale quote is the
// degraded fallback after a failed refresh; it is still a usable value.
// Callers never see a zero price here: "no price at all" is reported as
// domain.ErrPriceUnavailable instead.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	FetchedAt time.Time
	Stale     bool
}

type cacheEntry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Resolver is a read-through TTL cache in front of a price Source. It is
// owned by the composition root and passed in explicitly, not a process-wide
// singleton, so sessions stay independent and tests deterministic.
type Resolver struct {
	source      Source
	ttl         time.Duration
	refreshWait time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	entries  map[string]cacheEntry
	inflight map[string]chan struct{}
}

// NewResolver creates a resolver over source. Zero ttl or refreshWait fall
// back to the defaults.
func NewResolver(source Source, ttl, refreshWait time.Duration, logger *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if refreshWait <= 0 {
		refreshWait = DefaultRefreshWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source:      source,
		ttl:         ttl,
		refreshWait: refreshWait,
		logger:      logger,
		entries:     make(map[string]cacheEntry),
		inflight:    make(map[string]chan struct{}),
	}
}

// Resolve returns the USD price for symbol. A fresh cache hit performs no
// I/O. On a miss or stale entry the source is queried; if that fails the
// last cached value is returned flagged stale, and only when nothing was
// ever cached does the call fail with domain.ErrPriceUnavailable.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Quote, error) {
	r.mu.Lock()
	if e, ok := r.entries[symbol]; ok && time.Since(e.fetchedAt) < r.ttl {
		r.mu.Unlock()
		return Quote{Symbol: symbol, Price: e.price, FetchedAt: e.fetchedAt}, nil
	}

	if ch, ok := r.inflight[symbol]; ok {
		r.mu.Unlock()
		// bounded wait on the in-flight refresh, then cache fallback
		select {
		case <-ch:
		case <-time.After(r.refreshWait):
		case <-ctx.Done():
		}
		return r.cached(symbol)
	}

	ch := make(chan struct{})
	r.inflight[symbol] = ch
	r.mu.Unlock()

	price, err := r.source.GetPrice(ctx, symbol)

	r.mu.Lock()
	delete(r.inflight, symbol)
	close(ch)
	if err == nil && price.IsPositive() {
		fetchedAt := time.Now()
		r.entries[symbol] = cacheEntry{price: price, fetchedAt: fetchedAt}
		r.mu.Unlock()
		return Quote{Symbol: symbol, Price: price, FetchedAt: fetchedAt}, nil
	}
	r.mu.Unlock()

	if err == nil {
		err = errors.Errorf("source returned non-positive price %s", price)
	}
	r.logger.Warn("price refresh failed, falling back to cache",
		zap.String("symbol", symbol), zap.Error(err))

	return r.cached(symbol)
}

// ResolveAll resolves every distinct symbol once. Symbols that could not be
// priced at all are absent from the result; callers decide whether that
// degrades their own output.
func (r *Resolver) ResolveAll(ctx context.Context, symbols []string) map[string]Quote {
	quotes := make(map[string]Quote, len(symbols))
	for _, symbol := range symbols {
		if _, done := quotes[symbol]; done {
			continue
		}
		q, err := r.Resolve(ctx, symbol)
		if err != nil {
			continue
		}
		quotes[symbol] = q
	}
	return quotes
}

// cached returns whatever the cache still holds for symbol, marked stale
// when past TTL, or domain.ErrPriceUnavailable when the cache is empty.
func (r *Resolver) cached(symbol string) (Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[symbol]
	if !ok {
		return Quote{}, errors.Wrapf(domain.ErrPriceUnavailable, "no cached price for %s", symbol)
	}
	return Quote{
		Symbol:    symbol,
		Price:     e.price,
		FetchedAt: e.fetchedAt,
		Stale:     time.Since(e.fetchedAt) >= r.ttl,
	}, nil
}
