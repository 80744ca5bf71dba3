// Package main provides the entry point for the pair-trading engine: a
// single primary/secondary pair run through the unified z-score grid
// with a blended hedge ratio, a three-cap risk gate, and a
// disappearance monitor. The broker bridge is out of scope (spec.md
// Non-goals); this wires the bundled paper-trading fakes behind the
// same MarketFeed/OrderGateway interfaces production wiring would use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/alert"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/config"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/feed"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/gateway"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/grid"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/hedgeratio"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/metrics"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/monitor"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/orchestrator"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rollingwindow"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/statestore"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/statusapi"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// systemClock adapts wall-clock time to riskgate.Clock.
type systemClock struct{}

func (systemClock) Local() time.Time { return time.Now().Local() }

func main() {
	configPath := flag.String("config", "", "Path to a config file (optional; env vars and defaults apply regardless)")
	httpHost := flag.String("host", "", "Status API host (overrides config)")
	httpPort := flag.Int("port", 0, "Status API port (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pairengine: config error: %v\n", err)
		os.Exit(1)
	}
	if *httpHost != "" {
		cfg.HTTPHost = *httpHost
	}
	if *httpPort != 0 {
		cfg.HTTPPort = *httpPort
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pairengine: logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting pair-trading engine",
		zap.String("primary", cfg.PrimarySymbol),
		zap.String("secondary", cfg.SecondarySymbol),
		zap.Int("rolling_window_size", cfg.RollingWindowSize),
		zap.String("http", fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mf := gatewaySeededFeed(cfg.PrimarySymbol, cfg.SecondarySymbol, cfg.RollingWindowSize)
	gw := gateway.NewFake()

	met := metrics.New()
	snk := alert.NewChannelSink(logger, 256)

	win := rollingwindow.New(cfg.RollingWindowSize, cfg.BarPeriod)
	if err := win.Bootstrap(ctx, mf, cfg.PrimarySymbol, cfg.SecondarySymbol, 1.0, 90); err != nil {
		logger.Fatal("failed to bootstrap rolling window", zap.Error(err))
	}

	hrCfg := types.DefaultHedgeRatioConfig()
	hr := hedgeratio.New(hrCfg)
	sched := hedgeratio.NewScheduler(hrCfg.UpdateInterval)

	gr := grid.New(grid.Config{
		EntryThreshold:      cfg.EntryThreshold,
		ExitThreshold:       cfg.ExitThreshold,
		StopLossZScore:      cfg.StopLossZScore,
		ScaleInterval:       cfg.ScaleInterval,
		InitialFraction:     cfg.InitialFraction,
		MinInterExecutionMS: cfg.MinInterExecutionMS,
	})

	account, err := gw.AccountInfo(ctx)
	if err != nil {
		logger.Fatal("failed to read initial account snapshot", zap.Error(err))
	}
	rg := riskgate.New(logger, riskgate.Config{
		MaxLossPerSetupPct: cfg.MaxLossPerSetupPct,
		DailyLossLimitPct:  cfg.DailyLossLimitPct,
		MarginLevelFloor:   cfg.MarginLevelFloorPct,
		SessionStartHHMM:   cfg.SessionStartHHMM,
		SessionEndHHMM:     cfg.SessionEndHHMM,
	}, systemClock{}, account.Balance)

	tr := tracker.New()
	monCfg := types.DefaultMonitorConfig()
	mon := monitor.New(logger, monitor.Config{
		CheckInterval:       monCfg.CheckInterval,
		UserResponseTimeout: monCfg.UserResponseTimeout,
	}, gw)

	store := statestore.New(logger, cfg.StateFilePath)
	if err := store.Load(tr, rg, gr); err != nil {
		logger.Warn("no prior state restored", zap.Error(err))
	}

	primaryInfo, err := mf.SymbolInfo(ctx, cfg.PrimarySymbol)
	if err != nil {
		logger.Fatal("failed to read primary symbol info", zap.Error(err))
	}

	orch := orchestrator.New(logger, orchestrator.Config{
		PrimarySymbol:    cfg.PrimarySymbol,
		SecondarySymbol:  cfg.SecondarySymbol,
		MagicNumber:      cfg.MagicNumber,
		LotStep:          primaryInfo.LotStep,
		VolumeMultiplier: cfg.VolumeMultiplier,
	}, mf, gw, win, hr, sched, gr, rg, tr, mon, met, snk)

	if err := orch.Start(ctx); err != nil {
		logger.Fatal("failed to start orchestrator", zap.Error(err))
	}

	srv := statusapi.New(logger, statusapi.Config{Host: cfg.HTTPHost, Port: cfg.HTTPPort}, tr, rg, win, met, snk)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("status API error", zap.Error(err))
		}
	}()

	stopPersist := statestore.RunPeriodicSave(ctx, logger, store, tr, rg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	cancel()
	stopPersist()
	orch.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("status API shutdown error", zap.Error(err))
	}
	if err := store.Save(tr, rg); err != nil {
		logger.Error("final state save failed", zap.Error(err))
	}

	logger.Info("pair-trading engine stopped")
}

// gatewaySeededFeed builds a Fake feed with a flat, constant price
// history for both legs, long enough to bootstrap windowSize bars, so
// the engine has something to warm up against without a live broker.
func gatewaySeededFeed(primary, secondary string, windowSize int) *feed.Fake {
	f := feed.NewFake()
	now := time.Now()
	n := windowSize + 30

	primaryBars := make([]types.PriceBar, n)
	secondaryBars := make([]types.PriceBar, n)
	primaryPx := 2000.0
	secondaryPx := 25.0
	for i := 0; i < n; i++ {
		t := now.Add(-time.Duration(n-i) * time.Hour)
		primaryBars[i] = types.PriceBar{T: t, Close: primaryPx}
		secondaryBars[i] = types.PriceBar{T: t, Close: secondaryPx}
	}
	f.SetHistory(primary, primaryBars)
	f.SetHistory(secondary, secondaryBars)
	f.SetSymbolInfo(primary, types.SymbolInfo{
		ContractSize: decimal.NewFromInt(100),
		MinLot:       decimal.NewFromFloat(0.01),
		LotStep:      decimal.NewFromFloat(0.01),
		TickSize:     decimal.NewFromFloat(0.01),
	})
	f.SetSymbolInfo(secondary, types.SymbolInfo{
		ContractSize: decimal.NewFromInt(5000),
		MinLot:       decimal.NewFromFloat(0.01),
		LotStep:      decimal.NewFromFloat(0.01),
		TickSize:     decimal.NewFromFloat(0.001),
	})
	return f
}
