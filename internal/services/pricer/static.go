package pricer

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticSource serves prices from a fixed in-memory table. Used for
// simulation runs and tests where no exchange connectivity is wanted.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a source preloaded with the given prices.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[symbol] = price
	}
	return &StaticSource{prices: table}
}

// GetPrice returns the configured price for symbol.
func (s *StaticSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no static price configured for %s", symbol)
	}
	return price, nil
}

// Set overrides the price for symbol.
func (s *StaticSource) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}
