package pricer

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinanceSource fetches spot prices from the Binance public API without
// requiring authentication.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a price source backed by Binance tickers.
func NewBinanceSource(client *binance.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

// GetPrice fetches the current market price for symbol quoted in USDT.
func (s *BinanceSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ticker := symbol + quoteCurrency
	prices, err := s.client.NewListPricesService().Symbol(ticker).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", ticker)
	}

	return decimal.NewFromString(prices[0].Price)
}
