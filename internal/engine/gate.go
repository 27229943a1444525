package engine

import (
	"time"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/types"
)

// RiskGate decides whether the bot may open a new trade right now. Every
// condition must hold; evaluation short-circuits on the first failure and
// the returned reason names it.
type RiskGate struct {
	cfg       *config.Config
	sentiment interfaces.Sentiment
}

func NewRiskGate(cfg *config.Config, sentiment interfaces.Sentiment) *RiskGate {
	return &RiskGate{cfg: cfg, sentiment: sentiment}
}

// Eligible checks the five risk conditions against the current state, the
// wall clock and the latest sentiment reading.
func (g *RiskGate) Eligible(state *store.BotState, now time.Time, report types.SentimentReport) (bool, string) {
	if !state.IsTrading {
		return false, "trading disabled"
	}

	if state.DailyTrades >= g.cfg.Risk.MaxTradesPerDay {
		return false, "daily trade limit reached"
	}

	if state.ConsecutiveLosses >= g.cfg.Risk.MaxLossStreak {
		return false, "loss streak limit reached"
	}

	if g.sentiment.ShouldAvoidTrading(report) {
		return false, "hostile news sentiment"
	}

	hour := now.UTC().Hour()
	if hour < g.cfg.Risk.TradingHourStart || hour >= g.cfg.Risk.TradingHourEnd {
		return false, "outside trading hours"
	}
	if !state.LastTradeTime.IsZero() && now.Sub(state.LastTradeTime) < g.cfg.Cooldown() {
		return false, "cooldown active"
	}

	return true, ""
}
