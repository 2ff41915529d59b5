// Package domain defines core data structures used throughout the risk engine.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Asset is immutable reference data for a supported market, loaded once from
// configuration and never mutated at runtime. APY fields are refreshed from
// reserve data when a chain reader is wired, otherwise they hold the
// configured values.
type Asset struct {
	// Symbol short ticker, unique within the registry.
	Symbol string
	// Name display name.
	Name string
	// Address underlying token contract address.
	Address common.Address
	// Decimals token decimal precision.
	Decimals int
	// Native true for the chain's gas asset.
	Native bool
	// Stablecoin true for USD-pegged assets.
	Stablecoin bool
	// SupplyAPY current supply rate, percent.
	SupplyAPY decimal.Decimal
	// BorrowAPY current borrow rate, percent.
	BorrowAPY decimal.Decimal
	// LTV maximum loan-to-value ratio in [0,1].
	LTV decimal.Decimal
	// LiquidationThreshold ratio in [0,1], always >= LTV.
	LiquidationThreshold decimal.Decimal
	// LiquidationBonus liquidator incentive in [0,1].
	LiquidationBonus decimal.Decimal
}

// Validate checks ratio bounds and the threshold/LTV ordering.
func (a Asset) Validate() error {
	if a.Symbol == "" {
		return errors.New("asset symbol is required")
	}
	one := decimal.NewFromInt(1)
	if a.LTV.IsNegative() || a.LTV.GreaterThan(one) {
		return errors.Errorf("asset %s: ltv %s out of [0,1]", a.Symbol, a.LTV)
	}
	if a.LiquidationThreshold.IsNegative() || a.LiquidationThreshold.GreaterThan(one) {
		return errors.Errorf("asset %s: liquidation threshold %s out of [0,1]", a.Symbol, a.LiquidationThreshold)
	}
	if a.LiquidationThreshold.LessThan(a.LTV) {
		return errors.Errorf("asset %s: liquidation threshold %s below ltv %s",
			a.Symbol, a.LiquidationThreshold, a.LTV)
	}
	if a.LiquidationBonus.IsNegative() || a.LiquidationBonus.GreaterThan(one) {
		return errors.Errorf("asset %s: liquidation bonus %s out of [0,1]", a.Symbol, a.LiquidationBonus)
	}
	return nil
}
