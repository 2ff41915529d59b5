package domain

import "github.com/shopspring/decimal"

// HealthFactor is the ratio of risk-weighted collateral to debt. A zero-debt
// account has no liquidation price, which is modelled as the infinite case
// rather than a magic number.
type HealthFactor struct {
	value    decimal.Decimal
	infinite bool
}

// InfiniteHealthFactor is the health factor of a debt-free account.
func InfiniteHealthFactor() HealthFactor {
	return HealthFactor{infinite: true}
}

// NewHealthFactor wraps a finite health factor value.
func NewHealthFactor(v decimal.Decimal) HealthFactor {
	return HealthFactor{value: v}
}

// ComputeHealthFactor applies healthFactor = collateral * weightedThreshold / debt,
// with debt == 0 mapping to the infinite case.
func ComputeHealthFactor(collateral, weightedThreshold, debt decimal.Decimal) HealthFactor {
	if debt.LessThanOrEqual(decimal.Zero) {
		return InfiniteHealthFactor()
	}
	return NewHealthFactor(collateral.Mul(weightedThreshold).Div(debt))
}

// IsInfinite reports whether the account carries no debt.
func (h HealthFactor) IsInfinite() bool {
	return h.infinite
}

// Value returns the finite value. Meaningless when IsInfinite.
func (h HealthFactor) Value() decimal.Decimal {
	return h.value
}

// String returns the string representation.
func (h HealthFactor) String() string {
	if h.infinite {
		return "inf"
	}
	return h.value.String()
}

// RiskClass buckets a health factor for pre-flight warnings. Classes are
// ordered from most to least dangerous.
type RiskClass int

const (
	// RiskLiquidatable health factor below 1.0, eligible for liquidation.
	RiskLiquidatable RiskClass = iota
	// RiskCritical health factor in [1.0, 1.2).
	RiskCritical
	// RiskWarning health factor in [1.2, 1.5).
	RiskWarning
	// RiskModerate health factor in [1.5, 2.0).
	RiskModerate
	// RiskSafe health factor in [2.0, 10.0].
	RiskSafe
	// RiskHealthy health factor above 10.0 or infinite.
	RiskHealthy
)

var riskClassNames = map[RiskClass]string{
	RiskLiquidatable: "liquidatable",
	RiskCritical:     "critical",
	RiskWarning:      "warning",
	RiskModerate:     "moderate",
	RiskSafe:         "safe",
	RiskHealthy:      "healthy",
}

// String returns the string representation.
func (r RiskClass) String() string {
	if name, ok := riskClassNames[r]; ok {
		return name
	}
	return "unknown"
}

var (
	riskBoundCritical = decimal.NewFromInt(1)
	riskBoundWarning  = decimal.RequireFromString("1.2")
	riskBoundModerate = decimal.RequireFromString("1.5")
	riskBoundSafe     = decimal.NewFromInt(2)
	riskBoundHealthy  = decimal.NewFromInt(10)
)

// Classify maps a health factor to its risk class. Total over every
// non-negative value plus the infinite case.
func Classify(h HealthFactor) RiskClass {
	if h.infinite {
		return RiskHealthy
	}
	v := h.value
	switch {
	case v.LessThan(riskBoundCritical):
		return RiskLiquidatable
	case v.LessThan(riskBoundWarning):
		return RiskCritical
	case v.LessThan(riskBoundModerate):
		return RiskWarning
	case v.LessThan(riskBoundSafe):
		return RiskModerate
	case v.LessThanOrEqual(riskBoundHealthy):
		return RiskSafe
	default:
		return RiskHealthy
	}
}
