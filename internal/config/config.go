package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Required environment variables. Missing any of them is fatal at startup,
// before the first scheduler tick runs.
var requiredEnv = []string{
	"OANDA_API_KEY",
	"OANDA_ACCOUNT_ID",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
}

type Config struct {
	Mode        string   `yaml:"mode"` // DRY_RUN or LIVE
	Instruments []string `yaml:"instruments"`

	Broker struct {
		BaseURL           string  `yaml:"base_url"`
		Granularity       string  `yaml:"granularity"`
		CandleCount       int     `yaml:"candle_count"`
		MaxSpreadPips     float64 `yaml:"max_spread_pips"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"broker"`

	Risk struct {
		PerTradeRiskPct  float64 `yaml:"per_trade_risk_pct"`
		StopLossPips     int     `yaml:"stop_loss_pips"`
		TakeProfitPips   int     `yaml:"take_profit_pips"`
		MaxTradesPerDay  int     `yaml:"max_trades_per_day"`
		MaxLossStreak    int     `yaml:"max_loss_streak"`
		MinBalance       float64 `yaml:"min_balance"`
		CooldownSeconds  int     `yaml:"cooldown_seconds"`
		TradingHourStart int     `yaml:"trading_hour_start"` // UTC, inclusive
		TradingHourEnd   int     `yaml:"trading_hour_end"`   // UTC, exclusive
	} `yaml:"risk"`

	Intervals struct {
		TickSeconds        int `yaml:"tick_seconds"`
		NewsRefreshSeconds int `yaml:"news_refresh_seconds"`
		PriceScanSeconds   int `yaml:"price_scan_seconds"`
		HeartbeatSeconds   int `yaml:"heartbeat_seconds"`
		LogCleanupSeconds  int `yaml:"log_cleanup_seconds"`
	} `yaml:"intervals"`

	News struct {
		Sources        []string `yaml:"sources"`
		MaxArticles    int      `yaml:"max_articles"`
		CacheMinutes   int      `yaml:"cache_minutes"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		Enabled        bool     `yaml:"enabled"`
	} `yaml:"news"`

	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`

	Supervisor struct {
		MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
		RestartBackoffSeconds  int `yaml:"restart_backoff_seconds"`
		ProbeIntervalSeconds   int `yaml:"probe_interval_seconds"`
		FullCheckSeconds       int `yaml:"full_check_seconds"`
	} `yaml:"supervisor"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	if c.Risk.PerTradeRiskPct <= 0 || c.Risk.PerTradeRiskPct > 100 {
		return fmt.Errorf("risk.per_trade_risk_pct must be between 0-100, got %.2f", c.Risk.PerTradeRiskPct)
	}
	if c.Risk.TradingHourStart < 0 || c.Risk.TradingHourEnd > 24 ||
		c.Risk.TradingHourStart >= c.Risk.TradingHourEnd {
		return fmt.Errorf("invalid trading hours [%d, %d)", c.Risk.TradingHourStart, c.Risk.TradingHourEnd)
	}
	return nil
}

// ValidateEnv checks that every required environment variable is set.
func ValidateEnv() error {
	var missing []string
	for _, v := range requiredEnv {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if len(c.Instruments) == 0 {
		c.Instruments = []string{
			"EUR_USD", "GBP_USD", "USD_JPY", "USD_CHF", "AUD_USD",
			"USD_CAD", "NZD_USD", "EUR_GBP", "EUR_JPY", "GBP_JPY",
		}
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "https://api-fxpractice.oanda.com"
	}
	if c.Broker.Granularity == "" {
		c.Broker.Granularity = "M5"
	}
	if c.Broker.CandleCount == 0 {
		c.Broker.CandleCount = 100
	}
	if c.Broker.MaxSpreadPips == 0 {
		c.Broker.MaxSpreadPips = 5.0
	}
	if c.Broker.RequestsPerSecond == 0 {
		c.Broker.RequestsPerSecond = 10
	}
	if c.Broker.TimeoutSeconds == 0 {
		c.Broker.TimeoutSeconds = 10
	}
	if c.Risk.PerTradeRiskPct == 0 {
		c.Risk.PerTradeRiskPct = 2.0
	}
	if c.Risk.StopLossPips == 0 {
		c.Risk.StopLossPips = 50
	}
	if c.Risk.TakeProfitPips == 0 {
		c.Risk.TakeProfitPips = 100
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 15
	}
	if c.Risk.MaxLossStreak == 0 {
		c.Risk.MaxLossStreak = 3
	}
	if c.Risk.MinBalance == 0 {
		c.Risk.MinBalance = 100
	}
	if c.Risk.CooldownSeconds == 0 {
		c.Risk.CooldownSeconds = 300
	}
	if c.Risk.TradingHourStart == 0 {
		c.Risk.TradingHourStart = 2
	}
	if c.Risk.TradingHourEnd == 0 {
		c.Risk.TradingHourEnd = 22
	}
	if c.Intervals.TickSeconds == 0 {
		c.Intervals.TickSeconds = 1
	}
	if c.Intervals.NewsRefreshSeconds == 0 {
		c.Intervals.NewsRefreshSeconds = 12 * 60
	}
	if c.Intervals.PriceScanSeconds == 0 {
		c.Intervals.PriceScanSeconds = 7
	}
	if c.Intervals.HeartbeatSeconds == 0 {
		c.Intervals.HeartbeatSeconds = 5 * 60
	}
	if c.Intervals.LogCleanupSeconds == 0 {
		c.Intervals.LogCleanupSeconds = 60 * 60
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 10
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 10
	}
	if c.State.File == "" {
		c.State.File = "bot_state.json"
	}
	if c.Supervisor.MaxConsecutiveFailures == 0 {
		c.Supervisor.MaxConsecutiveFailures = 3
	}
	if c.Supervisor.RestartBackoffSeconds == 0 {
		c.Supervisor.RestartBackoffSeconds = 10
	}
	if c.Supervisor.ProbeIntervalSeconds == 0 {
		c.Supervisor.ProbeIntervalSeconds = 10
	}
	if c.Supervisor.FullCheckSeconds == 0 {
		c.Supervisor.FullCheckSeconds = 60
	}
}

// Durations derived from the integer second fields.

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Intervals.TickSeconds) * time.Second
}

func (c *Config) NewsRefreshInterval() time.Duration {
	return time.Duration(c.Intervals.NewsRefreshSeconds) * time.Second
}

func (c *Config) PriceScanInterval() time.Duration {
	return time.Duration(c.Intervals.PriceScanSeconds) * time.Second
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Intervals.HeartbeatSeconds) * time.Second
}

func (c *Config) LogCleanupInterval() time.Duration {
	return time.Duration(c.Intervals.LogCleanupSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Risk.CooldownSeconds) * time.Second
}
