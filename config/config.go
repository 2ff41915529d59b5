// Package config loads the daemon configuration from YAML or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/lendmon/lendmon/internal/domain"
)

// Config is the fully parsed daemon configuration.
type Config struct {
	// Platform price feed backend: binance, bybit, hyperliquid or static.
	Platform string
	// RPCURL Ethereum JSON-RPC endpoint.
	RPCURL string
	// Pool lending pool contract address.
	Pool common.Address
	// Account monitored user address.
	Account common.Address
	// PriceTTL freshness window of the price cache.
	PriceTTL time.Duration
	// PriceRefreshWait bounded wait on an in-flight price refresh.
	PriceRefreshWait time.Duration
	// PollInterval snapshot recomputation interval.
	PollInterval time.Duration
	// ConfirmTimeout how long to await transaction confirmation.
	ConfirmTimeout time.Duration
	// WebAddr listen address for the snapshot stream, empty disables it.
	WebAddr string
	// WALDir root directory for position journal and snapshot store.
	WALDir string
	// Assets supported market catalog, in configuration order.
	Assets []domain.Asset
	// StaticPrices price table for the static platform.
	StaticPrices map[string]decimal.Decimal
}

type AssetTmp struct {
	Symbol               string `yaml:"symbol"`
	Name                 string `yaml:"name"`
	Address              string `yaml:"address"`
	Decimals             int    `yaml:"decimals"`
	Native               bool   `yaml:"native,omitempty"`
	Stablecoin           bool   `yaml:"stablecoin,omitempty"`
	SupplyAPY            string `yaml:"supply_apy"`
	BorrowAPY            string `yaml:"borrow_apy"`
	LTV                  string `yaml:"ltv"`
	LiquidationThreshold string `yaml:"liquidation_threshold"`
	LiquidationBonus     string `yaml:"liquidation_bonus"`
}

type ConfigTmp struct {
	Platform         string            `yaml:"platform"`
	RPCURL           string            `yaml:"rpc_url"`
	Pool             string            `yaml:"pool"`
	Account          string            `yaml:"account"`
	PriceTTL         string            `yaml:"price_ttl,omitempty"`
	PriceRefreshWait string            `yaml:"price_refresh_wait,omitempty"`
	PollInterval     string            `yaml:"poll_interval,omitempty"`
	ConfirmTimeout   string            `yaml:"confirm_timeout,omitempty"`
	WebAddr          string            `yaml:"web_addr,omitempty"`
	WALDir           string            `yaml:"wal_dir,omitempty"`
	Assets           []AssetTmp        `yaml:"assets"`
	StaticPrices     map[string]string `yaml:"static_prices,omitempty"`
}

// Defaults applied when the YAML omits optional fields.
const (
	DefaultPriceTTL         = 60 * time.Second
	DefaultPriceRefreshWait = 3 * time.Second
	DefaultPollInterval     = 60 * time.Second
	DefaultConfirmTimeout   = 2 * time.Minute
	DefaultWALDir           = "./wal"
)

// Get parses the --config flag and loads the configuration from YAML, or
// falls back to CLI flags with a built-in asset catalog.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "static", "price feed platform: binance, bybit, hyperliquid or static")
	rpcURL := flag.String("rpc", "", "ethereum json-rpc endpoint")
	pool := flag.String("pool", "", "lending pool contract address")
	account := flag.String("account", "", "monitored account address")
	pollInterval := flag.Duration("pollinterval", DefaultPollInterval, "snapshot recomputation interval")
	webAddr := flag.String("webaddr", "", "snapshot stream listen address, empty disables")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	if !common.IsHexAddress(*account) {
		return Config{}, fmt.Errorf("invalid --account provided, --account=%s", *account)
	}

	cfg := Config{
		Platform:         *platform,
		RPCURL:           *rpcURL,
		Account:          common.HexToAddress(*account),
		PriceTTL:         DefaultPriceTTL,
		PriceRefreshWait: DefaultPriceRefreshWait,
		PollInterval:     *pollInterval,
		ConfirmTimeout:   DefaultConfirmTimeout,
		WebAddr:          *webAddr,
		WALDir:           DefaultWALDir,
		Assets:           defaultCatalog(),
		StaticPrices:     defaultStaticPrices(),
	}
	if *pool != "" {
		if !common.IsHexAddress(*pool) {
			return Config{}, fmt.Errorf("invalid --pool provided, --pool=%s", *pool)
		}
		cfg.Pool = common.HexToAddress(*pool)
	}

	return cfg, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (Config, error) {
	cfg := Config{
		Platform: tmp.Platform,
		RPCURL:   tmp.RPCURL,
		WebAddr:  tmp.WebAddr,
		WALDir:   tmp.WALDir,
	}

	if cfg.Platform == "" {
		cfg.Platform = "static"
	}
	if cfg.WALDir == "" {
		cfg.WALDir = DefaultWALDir
	}

	var err error
	if cfg.PriceTTL, err = parseDuration("price_ttl", tmp.PriceTTL, DefaultPriceTTL); err != nil {
		return Config{}, err
	}
	if cfg.PriceRefreshWait, err = parseDuration("price_refresh_wait", tmp.PriceRefreshWait, DefaultPriceRefreshWait); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", tmp.PollInterval, DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmTimeout, err = parseDuration("confirm_timeout", tmp.ConfirmTimeout, DefaultConfirmTimeout); err != nil {
		return Config{}, err
	}

	if tmp.Pool != "" {
		if !common.IsHexAddress(tmp.Pool) {
			return Config{}, fmt.Errorf("incorrect 'pool' param in yaml config: %s", tmp.Pool)
		}
		cfg.Pool = common.HexToAddress(tmp.Pool)
	}
	if tmp.Account != "" {
		if !common.IsHexAddress(tmp.Account) {
			return Config{}, fmt.Errorf("incorrect 'account' param in yaml config: %s", tmp.Account)
		}
		cfg.Account = common.HexToAddress(tmp.Account)
	}

	if len(tmp.Assets) == 0 {
		return Config{}, fmt.Errorf("yaml config must list at least one asset")
	}
	for _, a := range tmp.Assets {
		asset, err := parseAsset(a)
		if err != nil {
			return Config{}, err
		}
		cfg.Assets = append(cfg.Assets, asset)
	}

	if len(tmp.StaticPrices) > 0 {
		cfg.StaticPrices = make(map[string]decimal.Decimal, len(tmp.StaticPrices))
		for symbol, raw := range tmp.StaticPrices {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'static_prices' entry for %s (must be a decimal), error: %w", symbol, err)
			}
			cfg.StaticPrices[symbol] = price
		}
	}

	return cfg, nil
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (must be a duration like 30s): %w", field, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

func parseAsset(a AssetTmp) (domain.Asset, error) {
	parseRatio := func(field, raw string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("incorrect '%s' param for asset %s (must be a decimal), error: %w", field, a.Symbol, err)
		}
		return d, nil
	}

	asset := domain.Asset{
		Symbol:     a.Symbol,
		Name:       a.Name,
		Decimals:   a.Decimals,
		Native:     a.Native,
		Stablecoin: a.Stablecoin,
	}

	if a.Address != "" {
		if !common.IsHexAddress(a.Address) {
			return domain.Asset{}, fmt.Errorf("incorrect 'address' param for asset %s: %s", a.Symbol, a.Address)
		}
		asset.Address = common.HexToAddress(a.Address)
	}

	var err error
	if asset.SupplyAPY, err = parseRatio("supply_apy", a.SupplyAPY); err != nil {
		return domain.Asset{}, err
	}
	if asset.BorrowAPY, err = parseRatio("borrow_apy", a.BorrowAPY); err != nil {
		return domain.Asset{}, err
	}
	if asset.LTV, err = parseRatio("ltv", a.LTV); err != nil {
		return domain.Asset{}, err
	}
	if asset.LiquidationThreshold, err = parseRatio("liquidation_threshold", a.LiquidationThreshold); err != nil {
		return domain.Asset{}, err
	}
	if asset.LiquidationBonus, err = parseRatio("liquidation_bonus", a.LiquidationBonus); err != nil {
		return domain.Asset{}, err
	}

	if err := asset.Validate(); err != nil {
		return domain.Asset{}, err
	}

	return asset, nil
}

// defaultCatalog is the built-in market list used when no YAML is provided.
// APY figures are illustrative placeholders; a live session refreshes them
// from reserve data.
func defaultCatalog() []domain.Asset {
	mustDec := decimal.RequireFromString
	return []domain.Asset{
		{
			Symbol: "ETH", Name: "Ethereum", Decimals: 18, Native: true,
			SupplyAPY: mustDec("1.9"), BorrowAPY: mustDec("2.6"),
			LTV: mustDec("0.80"), LiquidationThreshold: mustDec("0.825"), LiquidationBonus: mustDec("0.05"),
		},
		{
			Symbol: "WBTC", Name: "Wrapped Bitcoin", Decimals: 8,
			SupplyAPY: mustDec("0.4"), BorrowAPY: mustDec("1.1"),
			LTV: mustDec("0.73"), LiquidationThreshold: mustDec("0.78"), LiquidationBonus: mustDec("0.065"),
		},
		{
			Symbol: "USDC", Name: "USD Coin", Decimals: 6, Stablecoin: true,
			SupplyAPY: mustDec("3.3"), BorrowAPY: mustDec("4.5"),
			LTV: mustDec("0.87"), LiquidationThreshold: mustDec("0.90"), LiquidationBonus: mustDec("0.045"),
		},
		{
			Symbol: "DAI", Name: "Dai", Decimals: 18, Stablecoin: true,
			SupplyAPY: mustDec("3.1"), BorrowAPY: mustDec("4.2"),
			LTV: mustDec("0.86"), LiquidationThreshold: mustDec("0.89"), LiquidationBonus: mustDec("0.05"),
		},
	}
}

// DefaultAssetsTmp renders the built-in catalog in YAML form, used by the
// setup wizard when generating a starter config.
func DefaultAssetsTmp() []AssetTmp {
	assets := defaultCatalog()
	out := make([]AssetTmp, 0, len(assets))
	for _, a := range assets {
		tmp := AssetTmp{
			Symbol:               a.Symbol,
			Name:                 a.Name,
			Decimals:             a.Decimals,
			Native:               a.Native,
			Stablecoin:           a.Stablecoin,
			SupplyAPY:            a.SupplyAPY.String(),
			BorrowAPY:            a.BorrowAPY.String(),
			LTV:                  a.LTV.String(),
			LiquidationThreshold: a.LiquidationThreshold.String(),
			LiquidationBonus:     a.LiquidationBonus.String(),
		}
		zero := common.Address{}
		if a.Address != zero {
			tmp.Address = a.Address.Hex()
		}
		out = append(out, tmp)
	}
	return out
}

// DefaultStaticPricesTmp renders the built-in price table in YAML form.
func DefaultStaticPricesTmp() map[string]string {
	prices := defaultStaticPrices()
	out := make(map[string]string, len(prices))
	for symbol, price := range prices {
		out[symbol] = price.String()
	}
	return out
}

func defaultStaticPrices() map[string]decimal.Decimal {
	mustDec := decimal.RequireFromString
	return map[string]decimal.Decimal{
		"ETH":  mustDec("3200"),
		"WBTC": mustDec("97000"),
		"USDC": mustDec("1"),
		"DAI":  mustDec("1"),
	}
}
