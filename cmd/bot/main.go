package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/engine"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/runner"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/telegram"
	"forex-trading-bot/internal/trace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = trace.Shutdown(context.Background()) }()

	// Missing credentials are fatal before the first tick runs.
	if err := config.ValidateEnv(); err != nil {
		logger.ErrorWithErr(ctx, "Startup aborted", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx)

	st, err := store.Open(ctx, cfg.State.File)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open state store", err)
		os.Exit(1)
	}

	brk := initializeBroker(ctx, cfg)
	sentiment := initializeSentiment(ctx, cfg)
	notifier := initializeNotifier()

	eng := engine.New(engine.Params{
		Config:    cfg,
		Broker:    brk,
		Sentiment: sentiment,
		Notifier:  notifier,
		Store:     st,
	})
	sup := runner.New(cfg, eng, brk, notifier, st)

	poller := telegram.NewPoller(notifier, eng)
	pollerDone := sup.TrackTask()
	go func() {
		defer pollerDone()
		poller.Run(ctx)
	}()
	go sup.RunHealthProbe(ctx)

	logger.Info(ctx, "Bot started", "mode", cfg.Mode, "instruments", len(cfg.Instruments))

	if err := sup.Run(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Bot stopped with error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Bot stopped")
}
