package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is the derived view over the current position set and
// current prices. It is recomputed on demand and all values inside one
// snapshot are mutually consistent.
type AccountSnapshot struct {
	// TakenAt time the snapshot was computed.
	TakenAt time.Time
	// TotalCollateralValue USD value of all supply positions.
	TotalCollateralValue decimal.Decimal
	// TotalDebtValue USD value of all borrow positions.
	TotalDebtValue decimal.Decimal
	// WeightedLiquidationThreshold collateral-value weighted threshold in [0,1].
	WeightedLiquidationThreshold decimal.Decimal
	// AvailableBorrowValue remaining LTV-weighted borrow capacity in USD.
	AvailableBorrowValue decimal.Decimal
	// HealthFactor current health factor.
	HealthFactor HealthFactor
	// WeightedSupplyAPY value-weighted supply rate over supply positions, percent.
	WeightedSupplyAPY decimal.Decimal
	// WeightedBorrowAPY value-weighted borrow rate over borrow positions, percent.
	WeightedBorrowAPY decimal.Decimal
	// Degraded true when at least one referenced asset priced as unknown.
	// A degraded snapshot must not green-light borrow or withdraw actions.
	Degraded bool
}

// SnapshotRecord is the wire form of a snapshot as persisted and streamed.
// String fields avoid precision issues when rendered in UI layers.
type SnapshotRecord struct {
	Timestamp       time.Time `json:"ts"`
	Account         string    `json:"account"`
	CollateralValue string    `json:"collateral_value"`
	DebtValue       string    `json:"debt_value"`
	AvailableBorrow string    `json:"available_borrow"`
	HealthFactor    string    `json:"health_factor"`
	RiskClass       string    `json:"risk_class"`
	SupplyAPY       string    `json:"supply_apy,omitempty"`
	BorrowAPY       string    `json:"borrow_apy,omitempty"`
	Degraded        bool      `json:"degraded,omitempty"`
}

// StoredSnapshot bundles a record with the log index it originated from.
type StoredSnapshot struct {
	Index  uint64
	Record SnapshotRecord
}

// Record converts the snapshot to its wire form for the given account.
func (s AccountSnapshot) Record(account string) SnapshotRecord {
	return SnapshotRecord{
		Timestamp:       s.TakenAt,
		Account:         account,
		CollateralValue: s.TotalCollateralValue.String(),
		DebtValue:       s.TotalDebtValue.String(),
		AvailableBorrow: s.AvailableBorrowValue.String(),
		HealthFactor:    s.HealthFactor.String(),
		RiskClass:       Classify(s.HealthFactor).String(),
		SupplyAPY:       s.WeightedSupplyAPY.String(),
		BorrowAPY:       s.WeightedBorrowAPY.String(),
		Degraded:        s.Degraded,
	}
}
