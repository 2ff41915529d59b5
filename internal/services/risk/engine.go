// Package risk computes current and predicted health factors for a lending
// account, and guards actions against liquidation risk before anything is
// submitted on-chain.
package risk

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/pricer"
)

// AccountView is the slice of the position book the engine needs.
type AccountView interface {
	Snapshot(ctx context.Context) (domain.AccountSnapshot, error)
	Positions() []domain.Position
}

// PriceResolver resolves a single asset price.
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (pricer.Quote, error)
}

// Engine derives health factors from the aggregated account state. All
// outputs are pre-flight estimates for the UI; the on-chain pool remains the
// authority.
type Engine struct {
	registry *registry.Registry
	resolver PriceResolver
	account  AccountView
	logger   *zap.Logger
}

// NewEngine creates a health-factor engine.
func NewEngine(reg *registry.Registry, resolver PriceResolver, account AccountView, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: reg, resolver: resolver, account: account, logger: logger}
}

// Current returns the health factor of the account as it stands. A degraded
// snapshot (any referenced asset priced as unknown) yields
// domain.ErrPriceUnavailable instead of a number: an unknown price must never
// be silently treated as a price of zero.
func (e *Engine) Current(ctx context.Context) (domain.HealthFactor, error) {
	snap, err := e.account.Snapshot(ctx)
	if err != nil {
		return domain.HealthFactor{}, errors.Wrap(err, "snapshot account")
	}
	if snap.Degraded {
		return domain.HealthFactor{}, errors.Wrap(domain.ErrPriceUnavailable, "health factor unknown")
	}
	return snap.HealthFactor, nil
}

// Predict computes the health factor that would result from applying the
// hypothetical action before it is submitted. The current snapshot's
// weighted liquidation threshold is reused for the post-action account: the
// dominant-term behaviour is adequate for a pre-flight warning and avoids
// re-deriving the threshold from the hypothetical asset mix.
func (e *Engine) Predict(ctx context.Context, action domain.Action, symbol string, quantity decimal.Decimal) (domain.HealthFactor, error) {
	if !action.IsValid() {
		return domain.HealthFactor{}, errors.Errorf("unknown action %d", action)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return domain.HealthFactor{}, errors.Wrapf(domain.ErrInvalidAmount, "action quantity %s must be positive", quantity)
	}
	if _, err := e.registry.Get(symbol); err != nil {
		return domain.HealthFactor{}, err
	}

	snap, err := e.account.Snapshot(ctx)
	if err != nil {
		return domain.HealthFactor{}, errors.Wrap(err, "snapshot account")
	}
	if snap.Degraded {
		return domain.HealthFactor{}, errors.Wrap(domain.ErrPriceUnavailable, "cannot predict on degraded snapshot")
	}

	quote, err := e.resolver.Resolve(ctx, symbol)
	if err != nil {
		return domain.HealthFactor{}, err
	}
	if !quote.Price.IsPositive() {
		return domain.HealthFactor{}, errors.Wrapf(domain.ErrPriceUnavailable, "non-positive price for %s", symbol)
	}

	delta := quantity.Mul(quote.Price)
	collateral := snap.TotalCollateralValue
	debt := snap.TotalDebtValue

	switch action {
	case domain.ActionSupply:
		collateral = collateral.Add(delta)
	case domain.ActionWithdraw:
		collateral = collateral.Sub(delta)
	case domain.ActionBorrow:
		debt = debt.Add(delta)
	case domain.ActionRepay:
		debt = debt.Sub(delta)
	}

	if collateral.IsNegative() {
		collateral = decimal.Zero
	}
	if debt.IsNegative() {
		debt = decimal.Zero
	}

	return domain.ComputeHealthFactor(collateral, snap.WeightedLiquidationThreshold, debt), nil
}

// CheckAction validates an action at the call boundary so precondition
// failures never reach the chain layer. Withdraw and repay quantities are
// checked against the account's holdings; borrow and withdraw actions that
// would leave the account liquidatable are rejected.
func (e *Engine) CheckAction(ctx context.Context, action domain.Action, symbol string, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(domain.ErrInvalidAmount, "action quantity %s must be positive", quantity)
	}

	switch action {
	case domain.ActionWithdraw:
		if held := e.holdings(domain.PositionSupply, symbol); quantity.GreaterThan(held) {
			return errors.Wrapf(domain.ErrInvalidAmount,
				"withdraw %s exceeds supplied %s %s", quantity, held, symbol)
		}
	case domain.ActionRepay:
		if owed := e.holdings(domain.PositionBorrow, symbol); quantity.GreaterThan(owed) {
			return errors.Wrapf(domain.ErrInvalidAmount,
				"repay %s exceeds borrowed %s %s", quantity, owed, symbol)
		}
	}

	predicted, err := e.Predict(ctx, action, symbol, quantity)
	if err != nil {
		return err
	}

	if (action == domain.ActionBorrow || action == domain.ActionWithdraw) &&
		domain.Classify(predicted) == domain.RiskLiquidatable {
		return errors.Wrapf(domain.ErrInsufficientCollateral,
			"%s of %s %s would drop health factor to %s", action, quantity, symbol, predicted)
	}

	return nil
}

func (e *Engine) holdings(kind domain.PositionKind, symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.account.Positions() {
		if p.Kind == kind && p.Symbol == symbol {
			total = total.Add(p.Quantity)
		}
	}
	return total
}
