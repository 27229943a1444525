package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"forex-trading-bot/internal/config"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/store"
	"forex-trading-bot/internal/tradelog"
	"forex-trading-bot/internal/types"
)

// State is the supervisor lifecycle state.
type State int

const (
	StateRunning State = iota
	StateRestarting
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// ErrFailureBudgetExhausted reports that the engine failed too many times
// in a row and the supervisor performed a full graceful shutdown.
var ErrFailureBudgetExhausted = errors.New("engine failure budget exhausted")

// Supervisor runs the engine loop, restarting it with backoff after a
// failure and shutting the whole process down once the consecutive-failure
// budget is spent. Panics inside the loop count as failures.
type Supervisor struct {
	cfg      *config.Config
	engine   interfaces.Engine
	broker   interfaces.Broker
	notifier interfaces.Notifier
	store    *store.Store

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	restarts            int
	activeTasks         int
}

func New(cfg *config.Config, engine interfaces.Engine, broker interfaces.Broker, notifier interfaces.Notifier, st *store.Store) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		engine:   engine,
		broker:   broker,
		notifier: notifier,
		store:    st,
		state:    StateRunning,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}

// ResetFailures clears the failure counter. Called by the health probe only
// when both the running flag and broker connectivity hold.
func (s *Supervisor) ResetFailures() {
	s.mu.Lock()
	s.consecutiveFailures = 0
	s.mu.Unlock()
}

func (s *Supervisor) recordFailure() int {
	s.mu.Lock()
	s.consecutiveFailures++
	n := s.consecutiveFailures
	s.mu.Unlock()
	return n
}

// TrackTask registers a long-running goroutine (engine loop, health probe,
// command poller) with the health snapshot. The returned release function
// is idempotent.
func (s *Supervisor) TrackTask() func() {
	s.mu.Lock()
	s.activeTasks++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.activeTasks--
			s.mu.Unlock()
		})
	}
}

func (s *Supervisor) ActiveTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTasks
}

// Run supervises the engine until ctx is cancelled or the failure budget is
// exhausted. Cancellation produces a clean shutdown and a nil error.
func (s *Supervisor) Run(ctx context.Context) error {
	done := s.TrackTask()
	defer done()

	for {
		s.setState(StateRunning)
		err := s.runEngine(ctx)

		if ctx.Err() != nil {
			logger.Info(ctx, "Supervisor received shutdown signal")
			s.shutdown(ctx, "🛑 Bot shutting down (operator request)")
			return nil
		}

		failures := s.recordFailure()
		logger.ErrorWithErr(ctx, "Engine loop failed", err,
			"consecutive_failures", failures,
			"budget", s.cfg.Supervisor.MaxConsecutiveFailures,
		)
		_ = tradelog.AppendAction("engine loop failure", map[string]any{
			"error": err.Error(), "consecutive_failures": failures,
		})
		if perr := s.store.Update(func(st *store.BotState) {
			st.ErrorCount++
		}); perr != nil {
			logger.Warn(ctx, "Failed to persist error count", "error", perr)
		}

		if failures >= s.cfg.Supervisor.MaxConsecutiveFailures {
			logger.Error(ctx, "Failure budget exhausted, shutting down",
				"failures", failures)
			s.shutdown(ctx, fmt.Sprintf("🚨 Bot stopped: %d consecutive failures. All positions closed.", failures))
			return ErrFailureBudgetExhausted
		}

		s.setState(StateRestarting)
		backoff := time.Duration(s.cfg.Supervisor.RestartBackoffSeconds) * time.Second
		logger.Info(ctx, "Restarting engine loop", "backoff", backoff.String(), "restarts", s.restarts+1)

		select {
		case <-ctx.Done():
			s.shutdown(ctx, "🛑 Bot shutting down (operator request)")
			return nil
		case <-time.After(backoff):
		}

		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
	}
}

// runEngine runs one engine incarnation, converting panics into errors so
// they advance the failure counter instead of killing the process.
func (s *Supervisor) runEngine(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return s.engine.Run(ctx)
}

// shutdown performs the graceful stop: close every open position, persist
// final state, and announce the stop. Cleanup gets its own deadline because
// the parent context is usually already cancelled here.
func (s *Supervisor) shutdown(ctx context.Context, notice string) {
	s.setState(StateStopping)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	positions, err := s.broker.GetPositions(cleanupCtx)
	if err != nil {
		logger.ErrorWithErr(cleanupCtx, "Failed to list positions during shutdown", err)
	}
	closed := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		if _, err := s.broker.ClosePosition(cleanupCtx, p.Instrument, 0); err != nil {
			logger.ErrorWithErr(cleanupCtx, "Failed to close position during shutdown", err, "instrument", p.Instrument)
			continue
		}
		closed = append(closed, p)
	}

	if err := s.store.Update(func(st *store.BotState) {
		for _, p := range closed {
			st.SettleTrade(p.Instrument, p.UnrealizedPnL)
		}
		st.OpenPositions = []types.Position{}
	}); err != nil {
		logger.ErrorWithErr(cleanupCtx, "Failed to persist final state", err)
	}

	if err := s.notifier.SendNotification(cleanupCtx, notice); err != nil {
		logger.Warn(cleanupCtx, "Shutdown notification failed", "error", err)
	}
	_ = tradelog.AppendAction("graceful shutdown", map[string]any{"positions_closed": len(closed)})

	s.setState(StateStopped)
}
