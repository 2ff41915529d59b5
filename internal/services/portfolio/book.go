// Package portfolio maintains the user's session-scoped supply and borrow
// positions and derives account snapshots from them.
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/pricer"
)

// PriceResolver resolves USD prices for a set of asset symbols.
type PriceResolver interface {
	ResolveAll(ctx context.Context, symbols []string) map[string]pricer.Quote
}

// Book owns one user's position set. It is session-scoped state passed in by
// the composition root; mutations and snapshots run to completion between
// triggering events.
type Book struct {
	registry *registry.Registry
	resolver PriceResolver
	journal  *Journal
	logger   *zap.Logger

	mu        sync.Mutex
	positions map[string]*domain.Position
	order     []string
}

// NewBook creates a position book. journal may be nil for ephemeral
// sessions; when set, previously journaled positions are recovered.
func NewBook(reg *registry.Registry, resolver PriceResolver, journal *Journal, logger *zap.Logger) (*Book, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Book{
		registry:  reg,
		resolver:  resolver,
		journal:   journal,
		logger:    logger,
		positions: make(map[string]*domain.Position),
	}

	if journal != nil {
		recovered, err := journal.Load()
		if err != nil {
			return nil, errors.Wrap(err, "recover position set")
		}
		for i := range recovered {
			p := recovered[i]
			b.positions[p.ID] = &p
			b.order = append(b.order, p.ID)
		}
		if len(recovered) > 0 {
			logger.Info("recovered positions from journal", zap.Int("count", len(recovered)))
		}
	}

	return b, nil
}

// Add opens a new position after validating the asset against the registry.
func (b *Book) Add(kind domain.PositionKind, symbol string, quantity decimal.Decimal, openedAt time.Time, txRef string) (domain.Position, error) {
	if _, err := b.registry.Get(symbol); err != nil {
		return domain.Position{}, err
	}

	p, err := domain.NewPosition(kind, symbol, quantity, openedAt, txRef)
	if err != nil {
		return domain.Position{}, err
	}

	b.mu.Lock()
	b.positions[p.ID] = &p
	b.order = append(b.order, p.ID)
	b.mu.Unlock()

	return p, b.persist()
}

// Reduce decreases a position by quantity. The position is removed once
// fully unwound. On a failed precondition the position is left unmodified.
func (b *Book) Reduce(id string, quantity decimal.Decimal) error {
	b.mu.Lock()
	p, ok := b.positions[id]
	if !ok {
		b.mu.Unlock()
		return errors.Wrapf(domain.ErrNotFound, "position %s", id)
	}
	if err := p.Reduce(quantity); err != nil {
		b.mu.Unlock()
		return err
	}
	if p.Closed() {
		b.removeLocked(id)
	}
	b.mu.Unlock()

	return b.persist()
}

// Remove deletes a position entirely (full withdraw or repay).
func (b *Book) Remove(id string) error {
	b.mu.Lock()
	if _, ok := b.positions[id]; !ok {
		b.mu.Unlock()
		return errors.Wrapf(domain.ErrNotFound, "position %s", id)
	}
	b.removeLocked(id)
	b.mu.Unlock()

	return b.persist()
}

// Replace swaps the whole position set, e.g. after a reload from on-chain
// state following an account change.
func (b *Book) Replace(positions []domain.Position) error {
	b.mu.Lock()
	b.positions = make(map[string]*domain.Position, len(positions))
	b.order = b.order[:0]
	for i := range positions {
		p := positions[i]
		b.positions[p.ID] = &p
		b.order = append(b.order, p.ID)
	}
	b.mu.Unlock()

	return b.persist()
}

// Positions returns the current position set in insertion order.
func (b *Book) Positions() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Position, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.positions[id])
	}
	return out
}

// Get returns a single position by id.
func (b *Book) Get(id string) (domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[id]
	if !ok {
		return domain.Position{}, errors.Wrapf(domain.ErrNotFound, "position %s", id)
	}
	return *p, nil
}

// Snapshot recomputes the account view over current positions and current
// prices. Each distinct asset is priced exactly once per call so all values
// in one snapshot are mutually consistent. Positions referencing assets the
// resolver could not price at all are excluded from the totals and flag the
// snapshot degraded.
func (b *Book) Snapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	positions := b.Positions()

	symbols := make([]string, 0, len(positions))
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Symbol]; ok {
			continue
		}
		seen[p.Symbol] = struct{}{}
		symbols = append(symbols, p.Symbol)
	}

	quotes := b.resolver.ResolveAll(ctx, symbols)

	snap := domain.AccountSnapshot{
		TakenAt:                      time.Now(),
		TotalCollateralValue:         decimal.Zero,
		TotalDebtValue:               decimal.Zero,
		WeightedLiquidationThreshold: decimal.Zero,
		AvailableBorrowValue:         decimal.Zero,
		WeightedSupplyAPY:            decimal.Zero,
		WeightedBorrowAPY:            decimal.Zero,
	}

	thresholdWeight := decimal.Zero
	borrowCapacity := decimal.Zero
	supplyAPYWeight := decimal.Zero
	borrowAPYWeight := decimal.Zero

	for _, p := range positions {
		asset, err := b.registry.Get(p.Symbol)
		if err != nil {
			b.logger.Warn("skipping position with unknown asset", zap.String("symbol", p.Symbol))
			snap.Degraded = true
			continue
		}

		quote, ok := quotes[p.Symbol]
		if !ok {
			b.logger.Warn("skipping position with unavailable price", zap.String("symbol", p.Symbol))
			snap.Degraded = true
			continue
		}

		value := p.Quantity.Mul(quote.Price)
		switch p.Kind {
		case domain.PositionSupply:
			snap.TotalCollateralValue = snap.TotalCollateralValue.Add(value)
			thresholdWeight = thresholdWeight.Add(value.Mul(asset.LiquidationThreshold))
			borrowCapacity = borrowCapacity.Add(value.Mul(asset.LTV))
			supplyAPYWeight = supplyAPYWeight.Add(value.Mul(asset.SupplyAPY))
		case domain.PositionBorrow:
			snap.TotalDebtValue = snap.TotalDebtValue.Add(value)
			borrowAPYWeight = borrowAPYWeight.Add(value.Mul(asset.BorrowAPY))
		}
	}

	if snap.TotalCollateralValue.IsPositive() {
		snap.WeightedLiquidationThreshold = thresholdWeight.Div(snap.TotalCollateralValue)
		snap.WeightedSupplyAPY = supplyAPYWeight.Div(snap.TotalCollateralValue)
	}
	if snap.TotalDebtValue.IsPositive() {
		snap.WeightedBorrowAPY = borrowAPYWeight.Div(snap.TotalDebtValue)
	}

	available := borrowCapacity.Sub(snap.TotalDebtValue)
	if available.IsPositive() {
		snap.AvailableBorrowValue = available
	}

	snap.HealthFactor = domain.ComputeHealthFactor(
		snap.TotalCollateralValue, snap.WeightedLiquidationThreshold, snap.TotalDebtValue)

	return snap, nil
}

// Close flushes and closes the journal if one is attached.
func (b *Book) Close() error {
	return b.journal.Close()
}

func (b *Book) removeLocked(id string) {
	delete(b.positions, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Book) persist() error {
	if b.journal == nil {
		return nil
	}
	if err := b.journal.Save(b.Positions()); err != nil {
		return errors.Wrap(err, "journal position set")
	}
	return nil
}
