package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testYaml = `platform: static
rpc_url: https://eth.example.org
pool: "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"
account: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
poll_interval: 30s
web_addr: ":8080"
assets:
  - symbol: USDC
    name: USD Coin
    decimals: 6
    stablecoin: true
    supply_apy: "3.3"
    borrow_apy: "4.5"
    ltv: "0.87"
    liquidation_threshold: "0.90"
    liquidation_bonus: "0.045"
static_prices:
  USDC: "1"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetYaml(t *testing.T) {
	cfg, err := getYaml(writeConfig(t, testYaml))
	require.NoError(t, err)

	require.Equal(t, "static", cfg.Platform)
	require.Equal(t, "https://eth.example.org", cfg.RPCURL)
	require.Equal(t, "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2", cfg.Pool.Hex())
	require.Equal(t, "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", cfg.Account.Hex())
	require.Equal(t, 30*time.Second, cfg.PollInterval)
	require.Equal(t, ":8080", cfg.WebAddr)

	require.Len(t, cfg.Assets, 1)
	require.Equal(t, "USDC", cfg.Assets[0].Symbol)
	require.True(t, cfg.Assets[0].LTV.Equal(decimal.RequireFromString("0.87")))

	require.True(t, cfg.StaticPrices["USDC"].Equal(decimal.NewFromInt(1)))

	// omitted optionals fall back to defaults
	require.Equal(t, DefaultPriceTTL, cfg.PriceTTL)
	require.Equal(t, DefaultPriceRefreshWait, cfg.PriceRefreshWait)
	require.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	require.Equal(t, DefaultWALDir, cfg.WALDir)
}

func TestGetYaml_InvalidAddress(t *testing.T) {
	bad := `platform: static
account: "not-an-address"
assets:
  - symbol: USDC
    supply_apy: "3.3"
    borrow_apy: "4.5"
    ltv: "0.87"
    liquidation_threshold: "0.90"
    liquidation_bonus: "0.045"
`
	_, err := getYaml(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "account")
}

func TestGetYaml_RequiresAssets(t *testing.T) {
	_, err := getYaml(writeConfig(t, "platform: static\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "asset")
}

func TestGetYaml_BadDecimal(t *testing.T) {
	bad := `platform: static
assets:
  - symbol: USDC
    supply_apy: "lots"
    borrow_apy: "4.5"
    ltv: "0.87"
    liquidation_threshold: "0.90"
    liquidation_bonus: "0.045"
`
	_, err := getYaml(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "supply_apy")
}

func TestDefaultAssetsTmp_RoundTrip(t *testing.T) {
	tmp := ConfigTmp{
		Platform:     "static",
		Account:      "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B",
		Assets:       DefaultAssetsTmp(),
		StaticPrices: DefaultStaticPricesTmp(),
	}

	cfg, err := fromTmp(tmp)
	require.NoError(t, err)
	require.Len(t, cfg.Assets, len(defaultCatalog()), "generated catalog must parse back cleanly")
	require.Len(t, cfg.StaticPrices, len(defaultStaticPrices()))
}
