package types

import "time"

// Direction is the side of a prospective or executed trade.
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionNeutral Direction = "neutral"
)

// Candle is one completed OHLCV bar.
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// PriceQuote is the current bid/ask for one instrument.
type PriceQuote struct {
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Timestamp  time.Time `json:"timestamp"`
}

// Spread returns ask minus bid.
func (q PriceQuote) Spread() float64 { return q.Ask - q.Bid }

// AccountInfo is the broker account snapshot used for sizing and health checks.
type AccountInfo struct {
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
	MarginRate    float64 `json:"margin_rate"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// Indicators is the fixed-shape indicator snapshot produced by internal/ta.
type Indicators struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	EMAFast    float64 `json:"ema_fast"`
	EMASlow    float64 `json:"ema_slow"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	ATR        float64 `json:"atr"`
}

// TechnicalAnalysis is the result of analyzing one instrument's candles.
type TechnicalAnalysis struct {
	Signal     Direction  `json:"signal"`
	Confidence float64    `json:"confidence"`
	Indicators Indicators `json:"indicators"`
}

// SentimentReport aggregates scraped news into one market-wide reading.
type SentimentReport struct {
	Sentiment        string    `json:"sentiment"` // positive, negative, neutral
	Score            float64   `json:"score"`     // [-1, 1]
	Confidence       float64   `json:"confidence"`
	VolatilityScore  float64   `json:"volatility_score"`
	ArticlesAnalyzed int       `json:"articles_analyzed"`
	PairsMentioned   []string  `json:"pairs_mentioned,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewsArticle is one scraped headline with optional body text.
type NewsArticle struct {
	Title       string
	Content     string
	URL         string
	Source      string
	PublishedAt string
}

// Opportunity is a scored, not-yet-executed candidate trade. It lives for
// one scan cycle and is never persisted.
type Opportunity struct {
	Instrument string
	Direction  Direction
	Confidence float64
	Price      float64
	Technical  TechnicalAnalysis
	Sentiment  SentimentReport
}

// TradeRecord is one executed trade. Append-only: once written to state it
// is never modified, except that RealizedPnL is filled in when the position
// closes.
type TradeRecord struct {
	ID          string    `json:"id"`
	Instrument  string    `json:"instrument"`
	Side        Direction `json:"side"`
	Units       float64   `json:"units"` // signed: buy > 0, sell < 0
	Price       float64   `json:"price"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
	RealizedPnL *float64  `json:"realized_pnl,omitempty"`
}

// Position is an open position reported by the broker.
type Position struct {
	Instrument    string  `json:"instrument"`
	Units         float64 `json:"units"` // signed
	Side          string  `json:"side"`  // long or short
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// OrderRequest is a market order submitted to the broker.
type OrderRequest struct {
	Instrument string
	Units      float64 // signed
	Side       Direction
	StopLoss   float64 // 0 means none
	TakeProfit float64 // 0 means none
	ClientID   string
}

// OrderFill is the broker's confirmation of a filled order.
type OrderFill struct {
	OrderID    string    `json:"order_id"`
	Instrument string    `json:"instrument"`
	Units      float64   `json:"units"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
}
