package engine

import (
	"context"
	"time"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/tradelog"
	"forex-trading-bot/internal/types"
)

// Executor sizes and submits one trade, records it in durable state, and
// fires a best-effort trade alert.
type Executor struct {
	cfg      *config.Config
	broker   interfaces.Broker
	notifier interfaces.Notifier
	store    *store.Store
	now      func() time.Time
}

func NewExecutor(cfg *config.Config, broker interfaces.Broker, notifier interfaces.Notifier, st *store.Store) *Executor {
	return &Executor{
		cfg:      cfg,
		broker:   broker,
		notifier: notifier,
		store:    st,
		now:      time.Now,
	}
}

// Size computes position units from the per-trade risk budget: the amount
// risked at the configured stop distance, clamped to [0.01, 10% of balance].
func (x *Executor) Size(balance float64, instrument string) float64 {
	pipValue := types.PipValue(instrument)
	riskAmount := balance * (x.cfg.Risk.PerTradeRiskPct / 100)
	units := riskAmount / (float64(x.cfg.Risk.StopLossPips) * pipValue)

	maxSize := balance * 0.1
	if units > maxSize {
		units = maxSize
	}
	if units < 0.01 {
		units = 0.01
	}
	return units
}

// Execute submits the opportunity as a market order. On broker success the
// trade is committed to state before any notification is attempted; a
// failed alert never rolls it back. On broker failure nothing is mutated.
func (x *Executor) Execute(ctx context.Context, opp *types.Opportunity, balance float64) (types.TradeRecord, error) {
	units := x.Size(balance, opp.Instrument)

	switch opp.Direction {
	case types.DirectionBuy:
		// positive units
	case types.DirectionSell:
		units = -units
	default:
		return types.TradeRecord{}, &ExecutionError{
			Instrument: opp.Instrument,
			Reason:     "unsupported direction " + string(opp.Direction),
		}
	}

	pipValue := types.PipValue(opp.Instrument)
	slDistance := float64(x.cfg.Risk.StopLossPips) * pipValue
	tpDistance := float64(x.cfg.Risk.TakeProfitPips) * pipValue

	req := types.OrderRequest{
		Instrument: opp.Instrument,
		Units:      units,
		Side:       opp.Direction,
	}
	if opp.Direction == types.DirectionBuy {
		req.StopLoss = opp.Price - slDistance
		req.TakeProfit = opp.Price + tpDistance
	} else {
		req.StopLoss = opp.Price + slDistance
		req.TakeProfit = opp.Price - tpDistance
	}

	fill, err := x.broker.PlaceOrder(ctx, req)
	if err != nil {
		return types.TradeRecord{}, &ExecutionError{
			Instrument: opp.Instrument,
			Reason:     "order rejected",
			Err:        err,
		}
	}

	record := types.TradeRecord{
		ID:         fill.OrderID,
		Instrument: opp.Instrument,
		Side:       opp.Direction,
		Units:      fill.Units,
		Price:      fill.Price,
		Confidence: opp.Confidence,
		Timestamp:  x.now(),
	}

	// Commit before notifying. A persist failure here is loop-level: the
	// broker already holds the order, so the caller must surface it.
	if err := x.store.Update(func(s *store.BotState) {
		s.DailyTrades++
		s.LastTradeTime = record.Timestamp
		s.Trades = append(s.Trades, record)
	}); err != nil {
		return record, err
	}

	if err := tradelog.Append(tradelog.Entry{
		Instrument: record.Instrument,
		Side:       string(record.Side),
		OrderID:    record.ID,
		Units:      record.Units,
		Price:      record.Price,
		Confidence: record.Confidence,
	}); err != nil {
		logger.Warn(ctx, "Trade log append failed", "error", err)
	}

	if err := x.notifier.SendTradeAlert(ctx, record); err != nil {
		logger.Warn(ctx, "Trade alert delivery failed", "order_id", record.ID, "error", err)
	}

	return record, nil
}
