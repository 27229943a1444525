package ta

import (
	"errors"
	"math"

	"forex-trading-bot/internal/types"
)

// MinBars is the minimum candle history for a full indicator snapshot.
const MinBars = 50

// ErrInsufficientHistory is returned when fewer than MinBars candles are
// available. Callers skip the instrument for the cycle.
var ErrInsufficientHistory = errors.New("insufficient candle history")

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMASeries returns the exponential moving average over the whole series,
// seeded at the first value with alpha = 2/(span+1).
func EMASeries(vals []float64, span int) []float64 {
	if len(vals) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

func EMA(vals []float64, span int) float64 {
	s := EMASeries(vals, span)
	if s == nil {
		return math.NaN()
	}
	return s[len(s)-1]
}

// MACD returns the latest MACD line and its signal line for the standard
// 12/26/9 configuration when called as MACD(closes, 12, 26, 9).
func MACD(closes []float64, fast, slow, signalSpan int) (macd, signal float64) {
	if len(closes) < slow {
		return math.NaN(), math.NaN()
	}
	fastS := EMASeries(closes, fast)
	slowS := EMASeries(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastS[i] - slowS[i]
	}
	sigS := EMASeries(line, signalSpan)
	return line[len(line)-1], sigS[len(sigS)-1]
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		sum += math.Max(tr1, math.Max(tr2, tr3))
	}
	return sum / float64(n)
}

// Comprehensive computes the full indicator snapshot for the candle series
// and derives the trading signal from the latest bar.
//
// Buy requires MACD above its signal line, RSI below 30 and the close below
// the lower Bollinger band; sell is the mirror. Anything else is neutral.
// Confidence maps the vote count [-3, 3] onto [0, 1].
func Comprehensive(candles []types.Candle) (types.TechnicalAnalysis, error) {
	if len(candles) < MinBars {
		return types.TechnicalAnalysis{}, ErrInsufficientHistory
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	macd, signal := MACD(closes, 12, 26, 9)
	rsi := RSI(closes, 14)
	mid, up, low := Bollinger(closes, 20, 2)
	atr := ATR(highs, lows, closes, 14)
	last := closes[len(closes)-1]

	ind := types.Indicators{
		RSI:        rsi,
		MACD:       macd,
		MACDSignal: signal,
		EMAFast:    EMA(closes, 12),
		EMASlow:    EMA(closes, 26),
		BBUpper:    up,
		BBMiddle:   mid,
		BBLower:    low,
		ATR:        atr,
	}

	strength := 0
	if macd > signal {
		strength++
	} else {
		strength--
	}
	switch {
	case rsi < 30:
		strength++
	case rsi > 70:
		strength--
	}
	switch {
	case last < low:
		strength++
	case last > up:
		strength--
	}

	dir := types.DirectionNeutral
	if macd > signal && rsi < 30 && last < low {
		dir = types.DirectionBuy
	} else if macd < signal && rsi > 70 && last > up {
		dir = types.DirectionSell
	}

	conf := (float64(strength) + 3.0) / 6.0
	conf = math.Min(math.Max(conf, 0), 1)

	return types.TechnicalAnalysis{Signal: dir, Confidence: conf, Indicators: ind}, nil
}
