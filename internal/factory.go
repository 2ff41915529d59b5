package internal

import (
	"fmt"
	"os"

	"github.com/lendmon/lendmon/config"
	"github.com/lendmon/lendmon/internal/clients"
	"github.com/lendmon/lendmon/internal/services/pricer"
)

const defaultHyperliquidAPIURL = "https://api.hyperliquid.xyz"

// NewPriceSource creates the platform-specific price source. This is the
// single point of truth for dispatching to feed implementations.
func NewPriceSource(cfg config.Config) (pricer.Source, error) {
	switch cfg.Platform {
	case "binance":
		// public price endpoints need no credentials
		client := clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		return pricer.NewBinanceSource(client), nil
	case "bybit":
		client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		return pricer.NewBybitSource(client), nil
	case "hyperliquid":
		key := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
		if key == "" {
			return nil, fmt.Errorf("HYPERLIQUID_PRIVATE_KEY environment variable must be set")
		}
		baseURL := os.Getenv("HYPERLIQUID_API_URL")
		if baseURL == "" {
			baseURL = defaultHyperliquidAPIURL
		}
		client, err := clients.NewHyperliquidClient(key, baseURL)
		if err != nil {
			return nil, err
		}
		return pricer.NewHyperliquidSource(client.Exchange().Info()), nil
	case "static":
		if len(cfg.StaticPrices) == 0 {
			return nil, fmt.Errorf("static platform requires static_prices in config")
		}
		return pricer.NewStaticSource(cfg.StaticPrices), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", cfg.Platform)
	}
}
