package interfaces

import (
	"context"

	"forex-trading-bot/internal/types"
)

// Notifier is the outbound side of the notification/command channel.
// Delivery is best-effort: a failed notification is logged by the caller
// and never rolls back the action it reports.
type Notifier interface {
	SendNotification(ctx context.Context, text string) error
	SendTradeAlert(ctx context.Context, record types.TradeRecord) error
	Ping(ctx context.Context) error
}
