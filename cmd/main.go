// Command lendmon runs the lending account risk monitor. It polls market
// prices, recomputes the account health factor on a fixed interval and
// serves the snapshot history over HTTP.
//
// Usage:
//
//	lendmon --config config.yaml
//	lendmon setup (interactive wizard, writes config.gen.yaml)
//	lendmon (uses CLI arguments)
//
// Optional environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY, HYPERLIQUID_API_URL
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lendmon/lendmon/config"
	"github.com/lendmon/lendmon/internal"
	"github.com/lendmon/lendmon/internal/chain"
	"github.com/lendmon/lendmon/internal/clients"
	"github.com/lendmon/lendmon/internal/events"
	"github.com/lendmon/lendmon/internal/registry"
	"github.com/lendmon/lendmon/internal/services/portfolio"
	"github.com/lendmon/lendmon/internal/services/pricer"
	"github.com/lendmon/lendmon/internal/services/risk"
	"github.com/lendmon/lendmon/internal/setup"
	"github.com/lendmon/lendmon/internal/storage/snapshots"
	"github.com/lendmon/lendmon/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	reg, err := registry.New(cfg.Assets)
	if err != nil {
		logger.Fatal("invalid asset catalog", zap.Error(err))
	}

	source, err := internal.NewPriceSource(cfg)
	if err != nil {
		logger.Fatal("failed to create price source", zap.Error(err))
	}
	resolver := pricer.NewResolver(source, cfg.PriceTTL, cfg.PriceRefreshWait, logger)

	journal, err := portfolio.OpenJournal(filepath.Join(cfg.WALDir, "positions"))
	if err != nil {
		logger.Fatal("failed to open position journal", zap.Error(err))
	}
	defer journal.Close()

	book, err := portfolio.NewBook(reg, resolver, journal, logger)
	if err != nil {
		logger.Fatal("failed to recover position book", zap.Error(err))
	}

	engine := risk.NewEngine(reg, resolver, book, logger)

	bus := events.NewBus(16)

	var (
		reader  *chain.Reader
		tracker *chain.Tracker
	)
	if cfg.RPCURL != "" {
		client, err := clients.NewEthClient(cfg.RPCURL)
		if err != nil {
			logger.Fatal("failed to dial ethereum rpc", zap.Error(err))
		}
		defer client.Close()
		reader = chain.NewReader(client, cfg.Pool)
		tracker = chain.NewTracker(client, chain.DefaultReceiptPoll, bus, logger)
	}

	store, err := snapshots.NewWALStore(filepath.Join(cfg.WALDir, "snapshots"))
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer store.Close()

	monitor := internal.NewMonitor(cfg, reg, book, engine, reader, store, bus, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitor.Run(ctx)
	})
	if cfg.WebAddr != "" {
		srv := web.NewServer(cfg.WebAddr, store, engine)
		if tracker != nil {
			srv.Tracker = tracker
			srv.ConfirmTimeout = cfg.ConfirmTimeout
		}
		g.Go(func() error {
			logger.Info("starting snapshot server", zap.String("addr", cfg.WebAddr))
			return srv.Start(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error(err.Error())
	}
}
