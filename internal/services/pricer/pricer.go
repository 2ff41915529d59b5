// Package pricer resolves asset prices in USD with caching and degraded
// fallback on feed failures.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source provides spot prices from an external market-data feed.
// Implementations are rate-limited and network-fallible; the Resolver is
// responsible for caching and fallback policy.
type Source interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// quoteCurrency is the quote side used when mapping an asset symbol to an
// exchange ticker, e.g. DAI -> DAIUSDT.
const quoteCurrency = "USDT"
