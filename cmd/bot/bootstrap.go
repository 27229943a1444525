package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"forex-trading-bot/internal/broker/brokerobs"
	"forex-trading-bot/internal/broker/oanda"
	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/news"
	"forex-trading-bot/internal/telegram"
	"forex-trading-bot/internal/trace"
	"forex-trading-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger, and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeBroker initializes and returns the broker instance with observability
func initializeBroker(ctx context.Context, cfg *config.Config) interfaces.Broker {
	brk := oanda.New(oanda.Params{
		BaseURL:           cfg.Broker.BaseURL,
		APIKey:            os.Getenv("OANDA_API_KEY"),
		AccountID:         os.Getenv("OANDA_ACCOUNT_ID"),
		Mode:              cfg.Mode,
		RequestsPerSecond: cfg.Broker.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	// Wrap with observability middleware
	return brokerobs.Wrap(brk)
}

// initializeSentiment initializes the news sentiment service
func initializeSentiment(ctx context.Context, cfg *config.Config) interfaces.Sentiment {
	svcCfg := news.DefaultServiceConfig()
	if len(cfg.News.Sources) > 0 {
		svcCfg.Sources = cfg.News.Sources
	}
	svcCfg.MaxArticles = cfg.News.MaxArticles
	svcCfg.CacheDuration = time.Duration(cfg.News.CacheMinutes) * time.Minute
	svcCfg.ScraperTimeout = time.Duration(cfg.News.TimeoutSeconds) * time.Second
	svcCfg.Enabled = cfg.News.Enabled

	if !svcCfg.Enabled {
		logger.Warn(ctx, "News sentiment disabled - using neutral sentiment")
	}
	return news.NewService(svcCfg)
}

// initializeNotifier initializes the Telegram notification channel
func initializeNotifier() *telegram.Notifier {
	return telegram.New(telegram.Params{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	})
}
