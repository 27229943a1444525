package runner

import (
	"context"
	"fmt"
	"time"

	"forex-trading-bot/internal/logger"
)

// HealthStatus is the point-in-time liveness snapshot reported by the
// probe. Never persisted.
type HealthStatus struct {
	Timestamp           time.Time
	BotRunning          bool
	ActiveTasks         int
	ConsecutiveFailures int
	BrokerConnected     bool
	NotifierConnected   bool
	AccountBalance      float64
}

// RunHealthProbe checks connectivity on the probe interval and performs a
// full check (with a status notification) on the longer full-check
// interval. The failure counter is cleared only when the engine is running
// AND the broker probe succeeds; neither alone is enough.
func (s *Supervisor) RunHealthProbe(ctx context.Context) {
	done := s.TrackTask()
	defer done()

	probeInterval := time.Duration(s.cfg.Supervisor.ProbeIntervalSeconds) * time.Second
	fullInterval := time.Duration(s.cfg.Supervisor.FullCheckSeconds) * time.Second

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	var lastFull time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			full := now.Sub(lastFull) >= fullInterval
			if full {
				lastFull = now
			}
			s.probe(ctx, full)
		}
	}
}

func (s *Supervisor) probe(ctx context.Context, full bool) {
	status := s.checkHealth(ctx, full)

	if status.BotRunning && status.BrokerConnected {
		s.ResetFailures()
	}

	if !status.BrokerConnected {
		logger.Warn(ctx, "Broker connectivity degraded",
			"consecutive_failures", status.ConsecutiveFailures)
	}

	if full {
		logger.Info(ctx, "Health check",
			"running", status.BotRunning,
			"active_tasks", status.ActiveTasks,
			"broker_connected", status.BrokerConnected,
			"notifier_connected", status.NotifierConnected,
			"consecutive_failures", status.ConsecutiveFailures,
			"balance", status.AccountBalance,
		)
		if err := s.notifier.SendNotification(ctx, formatHealthNotice(status)); err != nil {
			logger.Warn(ctx, "Health notification failed", "error", err)
		}
	}
}

// checkHealth gathers the snapshot. The quick probe only pings the broker;
// the full check also pings the notifier and fetches the account balance.
func (s *Supervisor) checkHealth(ctx context.Context, full bool) HealthStatus {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Timestamp:           time.Now(),
		BotRunning:          s.State() == StateRunning,
		ActiveTasks:         s.ActiveTasks(),
		ConsecutiveFailures: s.ConsecutiveFailures(),
		BrokerConnected:     s.broker.Ping(probeCtx) == nil,
	}
	if full {
		status.NotifierConnected = s.notifier.Ping(probeCtx) == nil
		if account, err := s.broker.GetAccountInfo(probeCtx); err == nil {
			status.AccountBalance = account.Balance
		} else {
			logger.Warn(ctx, "Balance check failed", "error", err)
		}
	}
	return status
}

func formatHealthNotice(status HealthStatus) string {
	mark := func(ok bool) string {
		if ok {
			return "✅"
		}
		return "❌"
	}
	return fmt.Sprintf("🩺 Health Check\nEngine: %s\nBroker: %s\nActive Tasks: %d\nFailures: %d\n💰 Balance: %.2f",
		mark(status.BotRunning), mark(status.BrokerConnected),
		status.ActiveTasks, status.ConsecutiveFailures, status.AccountBalance)
}
