package pricer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidSource fetches mid prices from the Hyperliquid public Info API.
type HyperliquidSource struct {
	info *hyperliquid.Info
}

// NewHyperliquidSource creates a price source backed by Hyperliquid mids.
func NewHyperliquidSource(info *hyperliquid.Info) *HyperliquidSource {
	return &HyperliquidSource{info: info}
}

// GetPrice fetches the current mid price for symbol.
func (s *HyperliquidSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.info == nil {
		return decimal.Zero, fmt.Errorf("hyperliquid info client is nil")
	}

	mids, err := s.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	// Hyperliquid mids are keyed by base coin (e.g., "ETH").
	mid, ok := mids[symbol]
	if !ok || mid == "" {
		return decimal.Zero, fmt.Errorf("hyperliquid API returned empty mid price for %s", symbol)
	}
	return decimal.NewFromString(mid)
}
