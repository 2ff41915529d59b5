package internal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lendmon/lendmon/config"
	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/internal/events"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/portfolio"
	"github.com/lendmon/lendmon/internal/services/pricer"
	"github.com/lendmon/lendmon/internal/services/risk"
)

type staticResolver struct {
	prices map[string]decimal.Decimal
}

func (s *staticResolver) ResolveAll(_ context.Context, symbols []string) map[string]pricer.Quote {
	quotes := make(map[string]pricer.Quote, len(symbols))
	for _, symbol := range symbols {
		if price, ok := s.prices[symbol]; ok {
			quotes[symbol] = pricer.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now()}
		}
	}
	return quotes
}

func (s *staticResolver) Resolve(_ context.Context, symbol string) (pricer.Quote, error) {
	price := s.prices[symbol]
	return pricer.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now()}, nil
}

func newTestMonitor(t *testing.T) (*Monitor, *portfolio.Book) {
	mustDec := decimal.RequireFromString
	reg, err := registry.New([]domain.Asset{{
		Symbol: "USDC", Name: "USD Coin", Decimals: 6, Stablecoin: true,
		SupplyAPY: mustDec("3.3"), BorrowAPY: mustDec("4.5"),
		LTV: mustDec("0.87"), LiquidationThreshold: mustDec("0.90"), LiquidationBonus: mustDec("0.045"),
	}})
	require.NoError(t, err)

	resolver := &staticResolver{prices: map[string]decimal.Decimal{"USDC": decimal.NewFromInt(1)}}

	book, err := portfolio.NewBook(reg, resolver, nil, nil)
	require.NoError(t, err)
	engine := risk.NewEngine(reg, resolver, book, nil)

	cfg := config.Config{PollInterval: time.Minute}
	return NewMonitor(cfg, reg, book, engine, nil, nil, nil, nil), book
}

func TestMonitor_DisconnectClearsPositions(t *testing.T) {
	monitor, book := newTestMonitor(t)

	_, err := book.Add(domain.PositionSupply, "USDC", decimal.NewFromInt(1000), time.Now(), "")
	require.NoError(t, err)

	monitor.handleWalletEvent(context.Background(), events.WalletEvent{Kind: events.AccountChanged})
	require.Empty(t, book.Positions(), "wallet disconnect must clear session positions")
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	monitor, _ := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}
}
