package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/trace"
	"forex-trading-bot/internal/tradelog"
)

// Engine is the cooperative orchestration loop. Each tick drains queued
// operator commands, fires whichever periodic tasks are due, and runs the
// gate -> scan -> execute cycle when the price-scan interval elapses. Ticks
// never overlap: the next tick starts only after the previous one's state
// mutations are persisted.
type Engine struct {
	cfg        *config.Config
	broker     interfaces.Broker
	sentiment  interfaces.Sentiment
	notifier   interfaces.Notifier
	store      *store.Store
	gate       *RiskGate
	aggregator *Aggregator
	executor   *Executor
	commands   chan Command
	now        func() time.Time
}

// Compile-time interface check
var _ interfaces.Engine = (*Engine)(nil)

// Params collects the engine's collaborators. Everything is passed in
// explicitly; the engine holds no ambient global state.
type Params struct {
	Config    *config.Config
	Broker    interfaces.Broker
	Sentiment interfaces.Sentiment
	Notifier  interfaces.Notifier
	Store     *store.Store
}

func New(p Params) *Engine {
	return &Engine{
		cfg:        p.Config,
		broker:     p.Broker,
		sentiment:  p.Sentiment,
		notifier:   p.Notifier,
		store:      p.Store,
		gate:       NewRiskGate(p.Config, p.Sentiment),
		aggregator: NewAggregator(p.Config, p.Broker),
		executor:   NewExecutor(p.Config, p.Broker, p.Notifier, p.Store),
		commands:   make(chan Command, 16),
		now:        time.Now,
	}
}

// Run drives the tick loop until ctx is cancelled or a tick-level error
// escapes. Errors returned here advance the supervisor's failure counter;
// task-local hiccups are absorbed inside the tick and retried next cycle.
func (e *Engine) Run(ctx context.Context) error {
	logger.Info(ctx, "Engine loop starting",
		"tick_interval", e.cfg.TickInterval().String(),
		"instruments", len(e.cfg.Instruments),
		"mode", e.cfg.Mode,
	)

	ticker := time.NewTicker(e.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Engine loop stopping, flushing state")
			if err := e.store.Save(); err != nil {
				logger.ErrorWithErr(ctx, "Final state flush failed", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				return fmt.Errorf("tick failed: %w", err)
			}
		}
	}
}

func (e *Engine) tick(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.tick")
	defer span.End()

	e.drainCommands(ctx)

	if err := e.resetDailyCounters(ctx); err != nil {
		return err
	}
	return e.runDueTasks(ctx)
}

// resetDailyCounters zeroes the per-day counters exactly once at each UTC
// day boundary, surviving restarts via the persisted reset marker. The loss
// streak resets with the day so one bad session cannot gate trading forever.
func (e *Engine) resetDailyCounters(ctx context.Context) error {
	today := e.now().UTC().Format("2006-01-02")
	if e.store.State().LastResetDay == today {
		return nil
	}

	logger.Risk(ctx, "daily_reset", "day", today)
	return e.store.Update(func(s *store.BotState) {
		s.DailyTrades = 0
		s.DailyPnL = 0
		s.ConsecutiveLosses = 0
		s.LastResetDay = today
	})
}

// runDueTasks fires each periodic task whose interval has elapsed since its
// persisted last-run timestamp.
func (e *Engine) runDueTasks(ctx context.Context) error {
	now := e.now()
	state := e.store.State()

	if now.Sub(state.LastNewsRefresh) >= e.cfg.NewsRefreshInterval() {
		report, err := e.sentiment.Refresh(ctx)
		if err != nil {
			logger.Warn(ctx, "News refresh failed", "error", err)
		}
		if err := e.store.Update(func(s *store.BotState) {
			s.LastNewsRefresh = now
			if err == nil {
				s.SentimentScores = report
			}
		}); err != nil {
			return err
		}
	}

	if now.Sub(state.LastPriceScan) >= e.cfg.PriceScanInterval() {
		if err := e.settleClosedPositions(ctx); err != nil {
			return err
		}
		if err := e.runStrategy(ctx); err != nil {
			return err
		}
		if err := e.store.Update(func(s *store.BotState) {
			s.LastPriceScan = now
		}); err != nil {
			return err
		}
	}

	if now.Sub(state.LastHeartbeat) >= e.cfg.HeartbeatInterval() {
		e.sendHeartbeat(ctx)
		if err := e.store.Update(func(s *store.BotState) {
			s.LastHeartbeat = now
		}); err != nil {
			return err
		}
	}

	if now.Sub(state.LastLogCleanup) >= e.cfg.LogCleanupInterval() {
		if err := tradelog.CompressOlder(14); err != nil {
			logger.Warn(ctx, "Log cleanup failed", "error", err)
		}
		if err := e.store.Update(func(s *store.BotState) {
			s.LastLogCleanup = now
		}); err != nil {
			return err
		}
	}

	return nil
}

// settleClosedPositions reconciles the persisted open-position set against
// the broker before each scan. A position that vanished was closed broker
// side (stop loss, take profit, or manual close); it is settled with the
// last unrealized P&L observed for it.
func (e *Engine) settleClosedPositions(ctx context.Context) error {
	current, err := e.broker.GetPositions(ctx)
	if err != nil {
		logger.Warn(ctx, "Position reconcile failed, keeping last known set", "error", err)
		return nil
	}

	stillOpen := make(map[string]bool, len(current))
	for _, p := range current {
		stillOpen[p.Instrument] = true
	}

	return e.store.Update(func(s *store.BotState) {
		for _, p := range s.OpenPositions {
			if stillOpen[p.Instrument] {
				continue
			}
			logger.Risk(ctx, "position_settled",
				"instrument", p.Instrument, "pnl", p.UnrealizedPnL)
			s.SettleTrade(p.Instrument, p.UnrealizedPnL)
		}
		s.OpenPositions = current
	})
}

// runStrategy is one automatic scan cycle: precondition checks, risk gate,
// instrument scan, and at most one execution. Collaborator hiccups are soft
// failures retried on the next scan; only persist failures propagate.
func (e *Engine) runStrategy(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.runStrategy")
	defer span.End()

	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		logger.Warn(ctx, "Account info unavailable, skipping cycle", "error", err)
		return nil
	}
	if account.Balance < e.cfg.Risk.MinBalance {
		logger.Debug(ctx, "Balance below minimum, skipping cycle",
			"balance", account.Balance, "minimum", e.cfg.Risk.MinBalance)
		return nil
	}

	report, err := e.sentiment.AnalyzeNewsSentiment(ctx)
	if err != nil {
		logger.Warn(ctx, "Sentiment unavailable, skipping cycle", "error", err)
		return nil
	}

	if ok, reason := e.gate.Eligible(e.store.State(), e.now(), report); !ok {
		logger.Risk(ctx, "gate_rejected", "reason", reason)
		return nil
	}

	opp, err := e.aggregator.Scan(ctx, report)
	if err != nil {
		logger.Warn(ctx, "Instrument scan failed, skipping cycle", "error", err)
		return nil
	}
	if opp == nil || opp.Confidence <= autoTradeThreshold {
		return nil
	}

	logger.Decision(ctx, opp.Instrument, string(opp.Direction), opp.Confidence, "executing best opportunity")

	record, err := e.executor.Execute(ctx, opp, account.Balance)
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			logger.ErrorWithErr(ctx, "Trade execution rejected", err, "instrument", execErr.Instrument)
			return nil
		}
		return err
	}

	_ = tradelog.AppendAction("trade executed", map[string]any{
		"instrument": record.Instrument,
		"order_id":   record.ID,
		"confidence": record.Confidence,
	})
	return nil
}

func (e *Engine) sendHeartbeat(ctx context.Context) {
	snap := e.store.Snapshot()
	uptime := e.now().Sub(snap.StartTime).Round(time.Minute)

	msg := fmt.Sprintf("💓 Heartbeat\nTrading: %v | Mode: %s\nTrades today: %d | Loss streak: %d\nUptime: %s",
		snap.IsTrading, snap.Mode, snap.DailyTrades, snap.ConsecutiveLosses, uptime)

	if err := e.notifier.SendNotification(ctx, msg); err != nil {
		logger.Warn(ctx, "Heartbeat delivery failed", "error", err)
	}
	_ = tradelog.AppendAction("heartbeat", nil)
}

// CloseAllPositions closes every open position, used during graceful
// shutdown and by operator commands.
func (e *Engine) CloseAllPositions(ctx context.Context) (int, error) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, p := range positions {
		if _, err := e.broker.ClosePosition(ctx, p.Instrument, 0); err != nil {
			logger.Warn(ctx, "Failed to close position", "instrument", p.Instrument, "error", err)
			continue
		}
		closed++
	}
	return closed, nil
}

func marketSession(now time.Time) string {
	hour := now.UTC().Hour()
	switch {
	case hour < 8:
		return "Asia Session"
	case hour < 16:
		return "London Session"
	case hour < 21:
		return "New York Session"
	default:
		return "Off Hours"
	}
}
