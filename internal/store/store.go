package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/types"
)

// BotState is the single durable process state document. It is owned by the
// scheduler loop and mutated only through Store.Update; the on-disk copy
// always reflects the state as of the end of the most recently completed
// tick.
type BotState struct {
	Trades        []types.TradeRecord `json:"trades"`
	OpenPositions []types.Position    `json:"open_positions"`

	TotalPnL float64 `json:"total_pnl"`
	DailyPnL float64 `json:"daily_pnl"`

	WinCount  int `json:"win_count"`
	LossCount int `json:"loss_count"`

	IsTrading bool   `json:"is_trading"`
	Mode      string `json:"current_mode"` // aggressive or safe

	LastNewsRefresh time.Time `json:"last_news_refresh"`
	LastPriceScan   time.Time `json:"last_price_scan"`
	LastHeartbeat   time.Time `json:"last_heartbeat"`
	LastLogCleanup  time.Time `json:"last_log_cleanup"`

	DailyTrades       int       `json:"daily_trades"`
	LastTradeTime     time.Time `json:"last_trade_time"`
	LastResetDay      string    `json:"last_reset_day"` // UTC date, 2006-01-02
	ConsecutiveLosses int       `json:"consecutive_losses"`
	ErrorCount        int       `json:"error_count"`

	SentimentScores types.SentimentReport `json:"sentiment_scores"`

	StartTime time.Time `json:"start_time"`
}

// DefaultState returns the bootstrap state used when no state file exists
// or the existing one cannot be parsed.
func DefaultState(now time.Time) *BotState {
	return &BotState{
		Trades:        []types.TradeRecord{},
		OpenPositions: []types.Position{},
		IsTrading:     true,
		Mode:          "aggressive",
		LastResetDay:  now.UTC().Format("2006-01-02"),
		StartTime:     now,
	}
}

// SettleTrade books the outcome of a closed position: it fills RealizedPnL
// on the most recent unsettled trade for the instrument and updates the
// P&L totals, win/loss counts, and the loss streak. A win resets the
// streak; anything else extends it. Call inside Store.Update.
func (s *BotState) SettleTrade(instrument string, pnl float64) {
	for i := len(s.Trades) - 1; i >= 0; i-- {
		if s.Trades[i].Instrument != instrument || s.Trades[i].RealizedPnL != nil {
			continue
		}
		p := pnl
		s.Trades[i].RealizedPnL = &p
		break
	}

	s.TotalPnL += pnl
	s.DailyPnL += pnl
	if pnl > 0 {
		s.WinCount++
		s.ConsecutiveLosses = 0
	} else {
		s.LossCount++
		s.ConsecutiveLosses++
	}
}

// Store persists BotState as a single JSON document, rewritten atomically
// on every mutation.
type Store struct {
	path  string
	state *BotState
	now   func() time.Time
}

// Open loads the state file at path, bootstrapping a default state if the
// file is missing or malformed. A corrupt state file must never prevent the
// process from starting.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(ctx, "State file unreadable, bootstrapping default state", "path", path, "error", err)
		}
		s.state = DefaultState(s.now())
		return s, nil
	}

	var st BotState
	if err := json.Unmarshal(b, &st); err != nil {
		logger.Warn(ctx, "State file malformed, bootstrapping default state", "path", path, "error", err)
		s.state = DefaultState(s.now())
		return s, nil
	}

	if st.Trades == nil {
		st.Trades = []types.TradeRecord{}
	}
	if st.OpenPositions == nil {
		st.OpenPositions = []types.Position{}
	}
	s.state = &st
	return s, nil
}

// State returns the current in-memory state. Callers outside the scheduler
// loop must treat it as read-only; mutation goes through Update.
func (s *Store) State() *BotState {
	return s.state
}

// Snapshot returns a deep copy safe to hand to other activities.
func (s *Store) Snapshot() BotState {
	cp := *s.state
	cp.Trades = append([]types.TradeRecord(nil), s.state.Trades...)
	cp.OpenPositions = append([]types.Position(nil), s.state.OpenPositions...)
	return cp
}

// Update applies fn to the state and persists the result atomically. If the
// write fails the in-memory mutation is kept and the error returned; the
// next successful Update rewrites the full document.
func (s *Store) Update(fn func(*BotState)) error {
	fn(s.state)
	return s.Save()
}

// Save rewrites the state document atomically (temp file + rename), so a
// crash mid-write can never leave a truncated document behind.
func (s *Store) Save() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Reset replaces the state with a fresh default and persists it.
func (s *Store) Reset() error {
	s.state = DefaultState(s.now())
	return s.Save()
}
