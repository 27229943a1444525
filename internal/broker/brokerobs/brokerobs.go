package brokerobs

import (
	"context"

	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/trace"
	"forex-trading-bot/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

func (ob *observableBroker) GetAccountInfo(ctx context.Context) (types.AccountInfo, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccountInfo")
	defer span.End()

	info, err := ob.broker.GetAccountInfo(ctx)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Failed to fetch account info", err)
		return types.AccountInfo{}, err
	}

	logger.Debug(ctx, "Account info fetched", "balance", info.Balance, "currency", info.Currency)
	return info, nil
}

func (ob *observableBroker) GetPrices(ctx context.Context, instruments []string) (map[string]types.PriceQuote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetPrices")
	defer span.End()

	prices, err := ob.broker.GetPrices(ctx, instruments)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Failed to fetch prices", err, "requested", len(instruments))
		return nil, err
	}

	logger.Debug(ctx, "Prices fetched", "requested", len(instruments), "received", len(prices))
	return prices, nil
}

func (ob *observableBroker) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetCandles", trace.WithInstrument(instrument))
	defer span.End()

	candles, err := ob.broker.GetCandles(ctx, instrument, granularity, count)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "instrument", instrument, "count", count)
		return nil, err
	}

	logger.Debug(ctx, "Candles fetched", "instrument", instrument, "count", len(candles))
	return candles, nil
}

func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderFill, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder", trace.WithInstrument(req.Instrument))
	defer span.End()

	logger.Info(ctx, "Placing order",
		"instrument", req.Instrument,
		"units", req.Units,
		"side", string(req.Side),
	)

	fill, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Order placement failed", err, "instrument", req.Instrument, "units", req.Units)
		return types.OrderFill{}, err
	}

	logger.Trade(ctx, fill.Instrument, string(req.Side), fill.Units, fill.Price, fill.OrderID)
	return fill, nil
}

func (ob *observableBroker) ClosePosition(ctx context.Context, instrument string, units float64) (types.OrderFill, error) {
	ctx, span := trace.StartSpan(ctx, "broker.ClosePosition", trace.WithInstrument(instrument))
	defer span.End()

	logger.Info(ctx, "Closing position", "instrument", instrument, "units", units)

	fill, err := ob.broker.ClosePosition(ctx, instrument, units)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Failed to close position", err, "instrument", instrument)
		return types.OrderFill{}, err
	}

	logger.Info(ctx, "Position closed", "instrument", instrument, "order_id", fill.OrderID, "price", fill.Price)
	return fill, nil
}

func (ob *observableBroker) GetPositions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetPositions")
	defer span.End()

	positions, err := ob.broker.GetPositions(ctx)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Failed to fetch positions", err)
		return nil, err
	}

	logger.Debug(ctx, "Positions fetched", "count", len(positions))
	return positions, nil
}

func (ob *observableBroker) IsSpreadAcceptable(ctx context.Context, instrument string, maxPips float64) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "broker.IsSpreadAcceptable", trace.WithInstrument(instrument))
	defer span.End()

	ok, err := ob.broker.IsSpreadAcceptable(ctx, instrument, maxPips)
	if err != nil {
		trace.RecordError(span, err)
		logger.ErrorWithErr(ctx, "Spread check failed", err, "instrument", instrument)
		return false, err
	}
	return ok, nil
}

func (ob *observableBroker) Ping(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.Ping")
	defer span.End()

	if err := ob.broker.Ping(ctx); err != nil {
		trace.RecordError(span, err)
		logger.Warn(ctx, "Broker connectivity probe failed", "error", err)
		return err
	}
	return nil
}
