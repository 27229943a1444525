package engine

import (
	"context"
	"errors"
	"math"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/ta"
	"forex-trading-bot/internal/types"
)

// Confidence thresholds for acting on a scanned opportunity. The manual
// trigger intentionally uses a lower bar than the automatic cycle.
const (
	autoTradeThreshold   = 0.70
	manualTradeThreshold = 0.60
)

// Aggregator scores candidate instruments by combining technical and
// sentiment signals into one bounded confidence value.
type Aggregator struct {
	cfg    *config.Config
	broker interfaces.Broker
}

func NewAggregator(cfg *config.Config, broker interfaces.Broker) *Aggregator {
	return &Aggregator{cfg: cfg, broker: broker}
}

// Combine merges a technical result and a sentiment reading into a trade
// direction and a confidence in [0,1]. The technical signal has veto power:
// a neutral technical signal forces a neutral result no matter how strong
// the sentiment is.
func Combine(technical types.TechnicalAnalysis, sentiment types.SentimentReport) (types.Direction, float64) {
	confidence := 0.4*technical.Confidence +
		0.3*math.Abs(sentiment.Score) +
		0.3*sentiment.VolatilityScore
	confidence = math.Min(math.Max(confidence, 0), 1)

	if technical.Signal == types.DirectionNeutral {
		return types.DirectionNeutral, confidence
	}
	return technical.Signal, confidence
}

// Scan evaluates every configured instrument and returns the single best
// opportunity, or nil when nothing qualifies. Instruments with an
// unacceptable spread, too little candle history, or a neutral direction
// are skipped. Ties go to the earlier instrument in configuration order.
func (a *Aggregator) Scan(ctx context.Context, sentiment types.SentimentReport) (*types.Opportunity, error) {
	prices, err := a.broker.GetPrices(ctx, a.cfg.Instruments)
	if err != nil {
		return nil, err
	}

	var best *types.Opportunity

	for _, instrument := range a.cfg.Instruments {
		quote, ok := prices[instrument]
		if !ok {
			continue
		}

		acceptable, err := a.broker.IsSpreadAcceptable(ctx, instrument, a.cfg.Broker.MaxSpreadPips)
		if err != nil || !acceptable {
			continue
		}

		candles, err := a.broker.GetCandles(ctx, instrument, a.cfg.Broker.Granularity, a.cfg.Broker.CandleCount)
		if err != nil {
			continue
		}

		analysis, err := ta.Comprehensive(candles)
		if err != nil {
			if !errors.Is(err, ta.ErrInsufficientHistory) {
				logger.Warn(ctx, "Technical analysis failed", "instrument", instrument, "error", err)
			}
			continue
		}

		direction, confidence := Combine(analysis, sentiment)
		if direction == types.DirectionNeutral {
			continue
		}

		logger.Decision(ctx, instrument, string(direction), confidence, "scan candidate",
			"rsi", analysis.Indicators.RSI,
			"macd", analysis.Indicators.MACD,
		)

		if best == nil || confidence > best.Confidence {
			best = &types.Opportunity{
				Instrument: instrument,
				Direction:  direction,
				Confidence: confidence,
				Price:      quote.Ask,
				Technical:  analysis,
				Sentiment:  sentiment,
			}
		}
	}

	return best, nil
}
