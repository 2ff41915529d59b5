package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionKind distinguishes supplied collateral from outstanding debt.
type PositionKind string

const (
	// PositionSupply deposited collateral.
	PositionSupply PositionKind = "supply"
	// PositionBorrow outstanding debt.
	PositionBorrow PositionKind = "borrow"
)

// IsValid checks if the PositionKind value is valid.
func (k PositionKind) IsValid() bool {
	return k == PositionSupply || k == PositionBorrow
}

// String returns the string representation.
func (k PositionKind) String() string {
	return string(k)
}

// Position is a user's supply or borrow against a single asset. Supply and
// borrow positions are structurally identical but contribute with opposite
// sign to the health factor.
type Position struct {
	ID       string          `json:"id"`
	Kind     PositionKind    `json:"kind"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	OpenedAt time.Time       `json:"opened_at"`
	TxRef    string          `json:"tx_ref,omitempty"`
}

// NewPosition constructs a validated position with a fresh id.
func NewPosition(kind PositionKind, symbol string, quantity decimal.Decimal, openedAt time.Time, txRef string) (Position, error) {
	if !kind.IsValid() {
		return Position{}, errors.Errorf("unknown position kind %q", kind)
	}
	if symbol == "" {
		return Position{}, errors.New("position symbol is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return Position{}, errors.Wrapf(ErrInvalidAmount, "position quantity %s must be positive", quantity)
	}

	return Position{
		ID:       uuid.New().String(),
		Kind:     kind,
		Symbol:   symbol,
		Quantity: quantity,
		OpenedAt: openedAt,
		TxRef:    txRef,
	}, nil
}

// Reduce decreases the position quantity by q. The position is left
// unmodified when q is non-positive or exceeds the current quantity.
func (p *Position) Reduce(q decimal.Decimal) error {
	if q.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidAmount, "reduce quantity %s must be positive", q)
	}
	if q.GreaterThan(p.Quantity) {
		return errors.Wrapf(ErrInvalidAmount, "reduce quantity %s exceeds position quantity %s", q, p.Quantity)
	}

	p.Quantity = p.Quantity.Sub(q)
	return nil
}

// Closed reports whether the position has been fully unwound.
func (p *Position) Closed() bool {
	return p.Quantity.IsZero()
}
