package engine

import (
	"context"
	"fmt"
	"strings"

	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/tradelog"
	"forex-trading-bot/internal/types"
)

// CommandKind enumerates the operator commands the engine honors. Commands
// are queued by the notification channel and executed inside a scheduled
// tick, never concurrently with one.
type CommandKind int

const (
	CmdStatus CommandKind = iota
	CmdPnL
	CmdOpenPositions
	CmdShowLog
	CmdWhatYouDoin
	CmdMakeTrade
	CmdCancelTrade
	CmdToggleMode
	CmdResetBot
	CmdStrategyStats
)

// Command is one queued operator request. Reply receives a single rendered
// response; it must be buffered so a slow consumer never stalls the tick.
type Command struct {
	Kind  CommandKind
	Reply chan string
}

// Submit queues a command for the next tick. Returns false when the queue
// is full; the caller should tell the operator to retry.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case e.commands <- cmd:
		return true
	default:
		return false
	}
}

func (e *Engine) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-e.commands:
			e.handleCommand(ctx, cmd)
		default:
			return
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd Command) {
	var msg string
	switch cmd.Kind {
	case CmdStatus:
		msg = e.statusReport(ctx)
	case CmdPnL:
		msg = e.pnlReport(ctx)
	case CmdOpenPositions:
		msg = e.openPositionsReport(ctx)
	case CmdShowLog:
		msg = e.recentActivityReport()
	case CmdWhatYouDoin:
		msg = e.currentActivityReport()
	case CmdMakeTrade:
		msg = e.manualTrade(ctx)
	case CmdCancelTrade:
		msg = e.closeAllAndHalt(ctx)
	case CmdToggleMode:
		msg = e.toggleMode(ctx)
	case CmdResetBot:
		msg = e.resetBot(ctx)
	case CmdStrategyStats:
		msg = e.strategyStatsReport()
	default:
		msg = "❌ Unknown command"
	}

	select {
	case cmd.Reply <- msg:
	default:
	}
}

func (e *Engine) statusReport(ctx context.Context) string {
	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Status unavailable: %v", err)
	}
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		positions = nil
	}

	snap := e.store.Snapshot()
	sentiment := snap.SentimentScores

	var b strings.Builder
	b.WriteString("📊 BOT STATUS REPORT\n\n")
	fmt.Fprintf(&b, "💰 Account Balance: %.2f %s\n", account.Balance, account.Currency)
	fmt.Fprintf(&b, "📈 Unrealized P&L: %.2f\n", account.UnrealizedPnL)
	fmt.Fprintf(&b, "💵 Realized P&L: %.2f\n", account.RealizedPnL)
	fmt.Fprintf(&b, "📊 Open Positions: %d\n", len(positions))
	fmt.Fprintf(&b, "🔄 Trading: %v | Mode: %s\n", snap.IsTrading, snap.Mode)
	fmt.Fprintf(&b, "📅 Trades Today: %d | Loss Streak: %d\n\n", snap.DailyTrades, snap.ConsecutiveLosses)
	b.WriteString("📰 NEWS SENTIMENT:\n")
	fmt.Fprintf(&b, "Sentiment: %s | Score: %.3f\n", sentiment.Sentiment, sentiment.Score)
	fmt.Fprintf(&b, "Volatility: %.1f%% | Articles: %d", sentiment.VolatilityScore*100, sentiment.ArticlesAnalyzed)
	return b.String()
}

func (e *Engine) pnlReport(ctx context.Context) string {
	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Sprintf("❌ P&L unavailable: %v", err)
	}

	snap := e.store.Snapshot()
	var b strings.Builder
	b.WriteString("💰 P&L Summary\n\n")
	fmt.Fprintf(&b, "💵 Balance: %.2f %s\n", account.Balance, account.Currency)
	fmt.Fprintf(&b, "📈 Unrealized P&L: %.2f\n", account.UnrealizedPnL)
	fmt.Fprintf(&b, "💵 Realized P&L: %.2f\n", account.RealizedPnL)
	fmt.Fprintf(&b, "📊 Total P&L: %.2f\n", account.UnrealizedPnL+account.RealizedPnL)
	fmt.Fprintf(&b, "📅 Daily P&L: %.2f | Wins: %d | Losses: %d", snap.DailyPnL, snap.WinCount, snap.LossCount)
	return b.String()
}

func (e *Engine) openPositionsReport(ctx context.Context) string {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Open positions unavailable: %v", err)
	}
	if len(positions) == 0 {
		return "📊 No open positions"
	}

	var b strings.Builder
	b.WriteString("📊 Open Positions:\n\n")
	for _, p := range positions {
		emoji := "🔴"
		if p.UnrealizedPnL > 0 {
			emoji = "🟢"
		}
		sideEmoji := "📉"
		if p.Side == "long" {
			sideEmoji = "📈"
		}
		fmt.Fprintf(&b, "%s %s %s\n   Units: %.2f\n   P&L: %.2f\n\n", emoji, sideEmoji, p.Instrument, p.Units, p.UnrealizedPnL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) recentActivityReport() string {
	lines, err := tradelog.RecentActions(10)
	if err != nil {
		return fmt.Sprintf("❌ Log unavailable: %v", err)
	}
	if len(lines) == 0 {
		return "📝 No recent logs available"
	}

	var b strings.Builder
	b.WriteString("📝 Recent Bot Activity:\n\n")
	for _, line := range lines {
		b.WriteString("🟢 " + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) currentActivityReport() string {
	lines, err := tradelog.RecentActions(1)
	if err != nil || len(lines) == 0 {
		return "🤖 Bot Status: Idle - No recent activity"
	}

	var b strings.Builder
	b.WriteString("🤖 Current Bot Status:\n\n")
	fmt.Fprintf(&b, "🔄 Last Action: %s\n", lines[len(lines)-1])
	b.WriteString("💻 Status: Active and Monitoring\n")
	fmt.Fprintf(&b, "📊 Market Session: %s", marketSession(e.now()))
	return b.String()
}

// manualTrade runs one on-demand scan-and-execute pass. It keeps the
// balance precondition but bypasses the risk gate and uses the lower
// manual threshold.
func (e *Engine) manualTrade(ctx context.Context) string {
	account, err := e.broker.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Unable to get account info: %v", err)
	}
	if account.Balance < e.cfg.Risk.MinBalance {
		return "❌ Insufficient balance for trading"
	}

	report, err := e.sentiment.AnalyzeNewsSentiment(ctx)
	if err != nil {
		report = types.SentimentReport{Sentiment: "neutral"}
	}

	opp, err := e.aggregator.Scan(ctx, report)
	if err != nil {
		return fmt.Sprintf("❌ Unable to get market prices: %v", err)
	}
	if opp == nil || opp.Confidence <= manualTradeThreshold {
		return "❌ No suitable trading opportunities found"
	}

	record, err := e.executor.Execute(ctx, opp, account.Balance)
	if err != nil {
		return fmt.Sprintf("❌ Trade failed: %v", err)
	}

	_ = tradelog.AppendAction("manual trade executed", map[string]any{
		"instrument": record.Instrument, "order_id": record.ID,
	})

	var b strings.Builder
	b.WriteString("✅ Trade Executed!\n\n")
	fmt.Fprintf(&b, "📊 Instrument: %s\n", record.Instrument)
	fmt.Fprintf(&b, "📈 Direction: %s\n", strings.ToUpper(string(record.Side)))
	fmt.Fprintf(&b, "💰 Units: %.2f\n", record.Units)
	fmt.Fprintf(&b, "💵 Price: %.5f\n", record.Price)
	fmt.Fprintf(&b, "🎯 Confidence: %.1f%%", record.Confidence*100)
	return b.String()
}

// closeAllAndHalt closes every open position and disables trading until an
// operator re-enables it with a reset.
func (e *Engine) closeAllAndHalt(ctx context.Context) string {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Unable to fetch positions: %v", err)
	}
	if len(positions) == 0 {
		return "✅ No open positions to close"
	}

	closed := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		if _, err := e.broker.ClosePosition(ctx, p.Instrument, 0); err != nil {
			logger.Warn(ctx, "Failed to close position", "instrument", p.Instrument, "error", err)
			continue
		}
		closed = append(closed, p)
	}

	if err := e.store.Update(func(s *store.BotState) {
		for _, p := range closed {
			s.SettleTrade(p.Instrument, p.UnrealizedPnL)
		}
		s.IsTrading = false
		s.OpenPositions = []types.Position{}
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist halt", err)
	}
	_ = tradelog.AppendAction("all positions closed manually", map[string]any{"closed_count": len(closed)})

	if len(closed) == 0 {
		return "❌ Failed to close positions"
	}
	return fmt.Sprintf("✅ Closed %d position(s)\n🛑 Trading halted - All positions closed", len(closed))
}

func (e *Engine) toggleMode(ctx context.Context) string {
	var mode string
	if err := e.store.Update(func(s *store.BotState) {
		if s.Mode == "aggressive" {
			s.Mode = "safe"
		} else {
			s.Mode = "aggressive"
		}
		mode = s.Mode
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist mode change", err)
	}
	return fmt.Sprintf("🔄 Trading mode switched to %s", mode)
}

func (e *Engine) strategyStatsReport() string {
	snap := e.store.Snapshot()
	if len(snap.Trades) == 0 {
		return "📊 No trades recorded yet"
	}

	var confSum, winSum, lossSum float64
	for _, tr := range snap.Trades {
		confSum += tr.Confidence
		if tr.RealizedPnL == nil {
			continue
		}
		if *tr.RealizedPnL > 0 {
			winSum += *tr.RealizedPnL
		} else {
			lossSum += -*tr.RealizedPnL
		}
	}

	winRate := 0.0
	if closed := snap.WinCount + snap.LossCount; closed > 0 {
		winRate = float64(snap.WinCount) / float64(closed) * 100
	}
	avgWin := 0.0
	if snap.WinCount > 0 {
		avgWin = winSum / float64(snap.WinCount)
	}
	avgLoss := 0.0
	if snap.LossCount > 0 {
		avgLoss = lossSum / float64(snap.LossCount)
	}
	profitFactor := 0.0
	if lossSum > 0 {
		profitFactor = winSum / lossSum
	}

	var b strings.Builder
	b.WriteString("📊 Strategy Performance\n\n")
	fmt.Fprintf(&b, "🎯 Win Rate: %.0f%%\n", winRate)
	fmt.Fprintf(&b, "📈 Average Win: %.2f\n", avgWin)
	fmt.Fprintf(&b, "📉 Average Loss: %.2f\n", avgLoss)
	fmt.Fprintf(&b, "💰 Profit Factor: %.2f\n", profitFactor)
	fmt.Fprintf(&b, "🔄 Total Trades: %d\n", len(snap.Trades))
	fmt.Fprintf(&b, "🧠 Average Confidence: %.1f%%\n", confSum/float64(len(snap.Trades))*100)
	fmt.Fprintf(&b, "⚙️ Mode: %s", snap.Mode)
	return b.String()
}

func (e *Engine) resetBot(ctx context.Context) string {
	positions, err := e.broker.GetPositions(ctx)
	if err == nil {
		for _, p := range positions {
			if _, cerr := e.broker.ClosePosition(ctx, p.Instrument, 0); cerr != nil {
				logger.Warn(ctx, "Failed to close position during reset", "instrument", p.Instrument, "error", cerr)
			}
		}
	}

	if err := e.store.Reset(); err != nil {
		return fmt.Sprintf("❌ Reset failed: %v", err)
	}
	_ = tradelog.AppendAction("bot reset", nil)
	return "🔄 Bot reset completed\nAll positions closed\nState reset"
}
