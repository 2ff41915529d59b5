package pricer

import (
	"context"
	"fmt"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
)

// BybitSource fetches spot prices from the Bybit V5 market API.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource creates a price source backed by Bybit tickers.
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client}
}

// GetPrice fetches the current market price for symbol quoted in USDT.
func (s *BybitSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	ticker := bybit.SymbolV5(symbol + quoteCurrency)

	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &ticker,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", symbol)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}
