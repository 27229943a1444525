package ta

import (
	"errors"
	"math"
	"testing"

	"forex-trading-bot/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// flatCandles returns n identical bars at the given close.
func flatCandles(n int, price float64) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		candles[i] = types.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return candles
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	if got := SMA(closes, 5); !almostEqual(got, 3) {
		t.Errorf("Expected SMA 3, got %f", got)
	}
	if got := SMA(closes, 2); !almostEqual(got, 4.5) {
		t.Errorf("Expected SMA 4.5, got %f", got)
	}
	if got := SMA(closes, 6); !math.IsNaN(got) {
		t.Errorf("Expected NaN for short series, got %f", got)
	}
}

func TestEMAFlatSeries(t *testing.T) {
	vals := []float64{100, 100, 100, 100, 100}

	if got := EMA(vals, 3); !almostEqual(got, 100) {
		t.Errorf("Expected EMA 100 for flat series, got %f", got)
	}
}

func TestEMASeriesSeed(t *testing.T) {
	s := EMASeries([]float64{10, 20}, 3)

	if !almostEqual(s[0], 10) {
		t.Errorf("Expected seed 10, got %f", s[0])
	}
	// alpha = 0.5, so second value is midway
	if !almostEqual(s[1], 15) {
		t.Errorf("Expected 15, got %f", s[1])
	}
}

func TestRSIExtremes(t *testing.T) {
	rising := make([]float64, 20)
	falling := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
		falling[i] = float64(100 - i)
	}

	if got := RSI(rising, 14); !almostEqual(got, 100) {
		t.Errorf("Expected RSI 100 for all gains, got %f", got)
	}
	if got := RSI(falling, 14); !almostEqual(got, 0) {
		t.Errorf("Expected RSI 0 for all losses, got %f", got)
	}
	if got := RSI(rising[:10], 14); !math.IsNaN(got) {
		t.Errorf("Expected NaN for short series, got %f", got)
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}

	mid, up, low := Bollinger(closes, 20, 2)
	if !almostEqual(mid, 50) || !almostEqual(up, 50) || !almostEqual(low, 50) {
		t.Errorf("Expected all bands at 50, got mid=%f up=%f low=%f", mid, up, low)
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i] = 101
		lows[i] = 99
		closes[i] = 100
	}

	if got := ATR(highs, lows, closes, 14); !almostEqual(got, 2) {
		t.Errorf("Expected ATR 2, got %f", got)
	}
}

func TestMACDTrendSign(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = float64(100 + i)
	}

	macd, _ := MACD(rising, 12, 26, 9)
	if macd <= 0 {
		t.Errorf("Expected positive MACD in uptrend, got %f", macd)
	}

	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = float64(200 - i)
	}

	macd, _ = MACD(falling, 12, 26, 9)
	if macd >= 0 {
		t.Errorf("Expected negative MACD in downtrend, got %f", macd)
	}
}

func TestComprehensiveInsufficientHistory(t *testing.T) {
	_, err := Comprehensive(flatCandles(MinBars-1, 100))
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("Expected ErrInsufficientHistory, got %v", err)
	}
}

func TestComprehensiveCrashBarStaysNeutral(t *testing.T) {
	// Flat history with a sharp drop on the last bar: oversold RSI and a
	// close below the lower band, but MACD momentum still points down, so
	// the buy rule must not fire.
	candles := flatCandles(50, 100)
	candles[49] = types.Candle{Open: 100, High: 100, Low: 90, Close: 90}

	result, err := Comprehensive(candles)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Signal != types.DirectionNeutral {
		t.Errorf("Expected neutral signal, got %s", result.Signal)
	}
	if result.Indicators.RSI >= 30 {
		t.Errorf("Expected oversold RSI, got %f", result.Indicators.RSI)
	}
	if result.Indicators.MACD >= result.Indicators.MACDSignal {
		t.Error("Expected MACD below its signal line after a crash bar")
	}
	// RSI and band votes are +1 each, MACD votes -1: strength 1 maps to 4/6.
	if !almostEqual(result.Confidence, 4.0/6.0) {
		t.Errorf("Expected confidence 4/6, got %f", result.Confidence)
	}
}

func TestComprehensiveSpikeBarStaysNeutral(t *testing.T) {
	candles := flatCandles(50, 100)
	candles[49] = types.Candle{Open: 100, High: 110, Low: 100, Close: 110}

	result, err := Comprehensive(candles)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Signal != types.DirectionNeutral {
		t.Errorf("Expected neutral signal, got %s", result.Signal)
	}
	if result.Indicators.RSI <= 70 {
		t.Errorf("Expected overbought RSI, got %f", result.Indicators.RSI)
	}
	// MACD votes +1, RSI and band votes -1 each: strength -1 maps to 2/6.
	if !almostEqual(result.Confidence, 2.0/6.0) {
		t.Errorf("Expected confidence 2/6, got %f", result.Confidence)
	}
}

func TestComprehensiveOversoldBuySignal(t *testing.T) {
	// Flat history, a sharp drop, twenty quiet bars, then a small slip
	// below the squeezed lower band. By then MACD has recovered above its
	// signal line, so all three buy votes line up.
	candles := flatCandles(30, 100)
	candles = append(candles, flatCandles(21, 90)...)
	candles = append(candles, types.Candle{Open: 90, High: 90, Low: 89.7, Close: 89.7})

	result, err := Comprehensive(candles)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Signal != types.DirectionBuy {
		t.Fatalf("Expected buy signal, got %s", result.Signal)
	}
	if result.Indicators.RSI >= 30 {
		t.Errorf("Expected oversold RSI, got %f", result.Indicators.RSI)
	}
	if result.Indicators.MACD <= result.Indicators.MACDSignal {
		t.Error("Expected MACD above its signal line after consolidation")
	}
	// All three votes agree, so strength 3 maps to full confidence.
	if !almostEqual(result.Confidence, 1.0) {
		t.Errorf("Expected confidence 1, got %f", result.Confidence)
	}
}

func TestComprehensiveIndicatorsPopulated(t *testing.T) {
	candles := make([]types.Candle, 60)
	for i := range candles {
		price := 100 + math.Sin(float64(i)/5)*2
		candles[i] = types.Candle{Open: price, High: price + 0.5, Low: price - 0.5, Close: price}
	}

	result, err := Comprehensive(candles)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ind := result.Indicators
	for name, v := range map[string]float64{
		"rsi": ind.RSI, "macd": ind.MACD, "macd_signal": ind.MACDSignal,
		"ema_fast": ind.EMAFast, "ema_slow": ind.EMASlow,
		"bb_upper": ind.BBUpper, "bb_middle": ind.BBMiddle, "bb_lower": ind.BBLower,
		"atr": ind.ATR,
	} {
		if math.IsNaN(v) {
			t.Errorf("Indicator %s is NaN", name)
		}
	}

	if ind.BBUpper < ind.BBMiddle || ind.BBMiddle < ind.BBLower {
		t.Error("Bollinger bands out of order")
	}
}
