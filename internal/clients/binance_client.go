package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient creates a Binance API client. Public price endpoints work
// with empty credentials.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
