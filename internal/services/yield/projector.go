// Package yield computes simple and compound interest projections for
// existing and hypothetical positions.
package yield

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/pricer"
)

const daysPerYear = 365

var percentDays = decimal.NewFromInt(100 * daysPerYear)

// Projection is the outcome of a compound-interest projection.
type Projection struct {
	FinalAmount   decimal.Decimal
	TotalInterest decimal.Decimal
}

// DailyYield computes simple daily interest: value * apy / (100 * 365).
func DailyYield(value, apy decimal.Decimal) decimal.Decimal {
	return value.Mul(apy).Div(percentDays)
}

// CompoundProjection projects principal at apy percent with daily
// compounding over years. Fractional years are allowed; years = 0 returns
// the principal untouched.
func CompoundProjection(principal, apy decimal.Decimal, years float64) (Projection, error) {
	if principal.IsNegative() {
		return Projection{}, errors.Wrapf(domain.ErrInvalidAmount, "principal %s must be non-negative", principal)
	}
	if apy.IsNegative() {
		return Projection{}, errors.Wrapf(domain.ErrInvalidAmount, "apy %s must be non-negative", apy)
	}
	if years < 0 || math.IsNaN(years) || math.IsInf(years, 0) {
		return Projection{}, errors.Wrapf(domain.ErrInvalidAmount, "years %f must be a non-negative real", years)
	}

	if years == 0 {
		return Projection{FinalAmount: principal, TotalInterest: decimal.Zero}, nil
	}

	apyFloat, _ := apy.Float64()
	dailyRate := apyFloat / float64(100*daysPerYear)
	factor := math.Pow(1+dailyRate, float64(daysPerYear)*years)

	final := principal.Mul(decimal.NewFromFloat(factor))
	return Projection{
		FinalAmount:   final,
		TotalInterest: final.Sub(principal),
	}, nil
}

// Projector values positions at current prices to project their yield.
type Projector struct {
	registry *registry.Registry
	resolver PriceResolver
}

// PriceResolver resolves a single asset price.
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (pricer.Quote, error)
}

// NewProjector creates a projector over the given registry and resolver.
func NewProjector(reg *registry.Registry, resolver PriceResolver) *Projector {
	return &Projector{registry: reg, resolver: resolver}
}

// DailyYieldOf computes the simple daily yield of a position at the current
// price. Supply positions earn the supply APY, borrow positions accrue the
// borrow APY as cost.
func (p *Projector) DailyYieldOf(ctx context.Context, position domain.Position) (decimal.Decimal, error) {
	asset, err := p.registry.Get(position.Symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}

	quote, err := p.resolver.Resolve(ctx, position.Symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !quote.Price.IsPositive() {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "non-positive price for %s", position.Symbol)
	}

	apy := asset.SupplyAPY
	if position.Kind == domain.PositionBorrow {
		apy = asset.BorrowAPY
	}

	return DailyYield(position.Quantity.Mul(quote.Price), apy), nil
}

// ProjectPosition runs a compound projection of the position's current value
// over years at the asset's applicable APY.
func (p *Projector) ProjectPosition(ctx context.Context, position domain.Position, years float64) (Projection, error) {
	asset, err := p.registry.Get(position.Symbol)
	if err != nil {
		return Projection{}, err
	}

	quote, err := p.resolver.Resolve(ctx, position.Symbol)
	if err != nil {
		return Projection{}, err
	}
	if !quote.Price.IsPositive() {
		return Projection{}, errors.Wrapf(domain.ErrPriceUnavailable, "non-positive price for %s", position.Symbol)
	}

	apy := asset.SupplyAPY
	if position.Kind == domain.PositionBorrow {
		apy = asset.BorrowAPY
	}

	return CompoundProjection(position.Quantity.Mul(quote.Price), apy, years)
}
