// Package internal wires the risk engine components into a running session.
package internal

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendmon/lendmon/config"
	"github.com/lendmon/lendmon/internal/chain"
	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/events"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/portfolio"
	"github.com/lendmon/lendmon/internal/services/risk"
	"github.com/lendmon/lendmon/internal/storage/snapshots"
)

// Monitor drives one user session: it recomputes the account snapshot on a
// fixed interval, persists and publishes the result, and reacts to wallet
// events from the bus. A single logical actor; every trigger runs to
// completion before the next is processed.
type Monitor struct {
	cfg      config.Config
	registry *registry.Registry
	book     *portfolio.Book
	engine   *risk.Engine
	reader   *chain.Reader
	store    *snapshots.WALStore
	bus      *events.Bus
	logger   *zap.Logger

	account common.Address
}

// NewMonitor assembles a session monitor. reader and store may be nil when
// no RPC endpoint or WAL directory is configured.
func NewMonitor(
	cfg config.Config,
	reg *registry.Registry,
	book *portfolio.Book,
	engine *risk.Engine,
	reader *chain.Reader,
	store *snapshots.WALStore,
	bus *events.Bus,
	logger *zap.Logger,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:      cfg,
		registry: reg,
		book:     book,
		engine:   engine,
		reader:   reader,
		store:    store,
		bus:      bus,
		logger:   logger,
		account:  cfg.Account,
	}
}

// Run executes the monitoring loop until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.reader != nil {
		if err := m.reloadFromChain(ctx); err != nil {
			m.logger.Warn("initial position reload failed, continuing with journaled state", zap.Error(err))
		}
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	var walletEvents chan events.WalletEvent
	if m.bus != nil {
		walletEvents = m.bus.Subscribe()
		defer m.bus.Unsubscribe(walletEvents)
	}

	m.logger.Info("starting session monitor",
		zap.String("account", m.account.Hex()),
		zap.Duration("poll_interval", m.cfg.PollInterval))

	m.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("context done, stopping session monitor")
			return ctx.Err()
		case e, ok := <-walletEvents:
			if !ok {
				walletEvents = nil
				continue
			}
			m.handleWalletEvent(ctx, e)
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	snap, err := m.book.Snapshot(ctx)
	if err != nil {
		m.logger.Error("snapshot recomputation failed", zap.Error(err))
		return
	}

	class := domain.Classify(snap.HealthFactor)
	fields := []zap.Field{
		zap.String("health_factor", snap.HealthFactor.String()),
		zap.String("risk_class", class.String()),
		zap.String("collateral", snap.TotalCollateralValue.String()),
		zap.String("debt", snap.TotalDebtValue.String()),
	}
	switch {
	case snap.Degraded:
		m.logger.Warn("snapshot degraded, health factor unreliable", fields...)
	case class <= domain.RiskCritical:
		m.logger.Warn("account at liquidation risk", fields...)
	default:
		m.logger.Debug("snapshot recomputed", fields...)
	}

	if m.store != nil {
		if err := m.store.Save(snap.Record(m.account.Hex())); err != nil {
			m.logger.Error("persist snapshot failed", zap.Error(err))
		}
	}
}

func (m *Monitor) handleWalletEvent(ctx context.Context, e events.WalletEvent) {
	switch e.Kind {
	case events.AccountChanged:
		if e.Account == "" {
			m.logger.Info("wallet disconnected, clearing session positions")
			if err := m.book.Replace(nil); err != nil {
				m.logger.Error("clear positions failed", zap.Error(err))
			}
			return
		}
		m.account = common.HexToAddress(e.Account)
		m.logger.Info("account changed, reloading positions", zap.String("account", e.Account))
		if err := m.reloadFromChain(ctx); err != nil {
			m.logger.Error("position reload failed", zap.Error(err))
		}
		m.tick(ctx)
	case events.ChainChanged:
		m.logger.Info("chain changed, reloading positions", zap.Int64("chain_id", e.ChainID))
		if err := m.reloadFromChain(ctx); err != nil {
			m.logger.Error("position reload failed", zap.Error(err))
		}
		m.tick(ctx)
	case events.TxStatusChanged:
		if e.Tx == nil {
			return
		}
		m.logger.Info("transaction status",
			zap.String("ref", e.Tx.Ref), zap.String("state", e.Tx.State.String()))
		if e.Tx.State == domain.TxConfirmed {
			if err := m.reloadFromChain(ctx); err != nil {
				m.logger.Error("post-confirmation reload failed", zap.Error(err))
			}
			m.tick(ctx)
		}
	}
}

// reloadFromChain rebuilds the position set from on-chain token balances:
// aToken balances become supply positions, variable debt token balances
// become borrow positions.
func (m *Monitor) reloadFromChain(ctx context.Context) error {
	if m.reader == nil {
		return nil
	}

	accountData, err := m.reader.UserAccountData(ctx, m.account)
	if err != nil {
		return errors.Wrap(err, "read account data")
	}
	m.logger.Info("on-chain account data",
		zap.String("collateral", accountData.TotalCollateral.String()),
		zap.String("debt", accountData.TotalDebt.String()),
		zap.String("health_factor", accountData.HealthFactor.String()))

	var positions []domain.Position
	now := time.Now()
	zeroAddr := common.Address{}

	for _, asset := range m.registry.List() {
		if asset.Address == zeroAddr {
			continue
		}

		reserve, err := m.reader.ReserveData(ctx, asset.Address)
		if err != nil {
			m.logger.Warn("skipping reserve with unreadable data",
				zap.String("symbol", asset.Symbol), zap.Error(err))
			continue
		}

		supplied, err := m.reader.BalanceOf(ctx, reserve.ATokenAddress, m.account, asset.Decimals)
		if err != nil {
			return errors.Wrapf(err, "read supply balance of %s", asset.Symbol)
		}
		if supplied.IsPositive() {
			p, err := domain.NewPosition(domain.PositionSupply, asset.Symbol, supplied, now, "")
			if err != nil {
				return err
			}
			positions = append(positions, p)
		}

		owed, err := m.reader.BalanceOf(ctx, reserve.DebtTokenAddress, m.account, asset.Decimals)
		if err != nil {
			return errors.Wrapf(err, "read debt balance of %s", asset.Symbol)
		}
		if owed.IsPositive() {
			p, err := domain.NewPosition(domain.PositionBorrow, asset.Symbol, owed, now, "")
			if err != nil {
				return err
			}
			positions = append(positions, p)
		}
	}

	return m.book.Replace(positions)
}
