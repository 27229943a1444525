// Package telegram implements the operator notification channel: outbound
// alerts and an inbound long-poll command loop against the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forex-trading-bot/internal/api"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/types"
)

const apiBaseURL = "https://api.telegram.org/bot"

// Notifier sends messages to a single configured chat. It satisfies the
// best-effort delivery contract: callers log failures and move on.
type Notifier struct {
	client *api.Client
	chatID string
}

var _ interfaces.Notifier = (*Notifier)(nil)

// Params configures the Telegram client.
type Params struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
	BaseURL  string // override for tests
}

func New(p Params) *Notifier {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = apiBaseURL + p.BotToken
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 35 * time.Second // must exceed the long-poll window
	}
	return &Notifier{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithRateLimit(1), // Telegram allows ~1 msg/s per chat
		),
		chatID: p.ChatID,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiEnvelope struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendNotification delivers text to the configured chat.
func (n *Notifier) SendNotification(ctx context.Context, text string) error {
	resp, err := n.client.POST(ctx, "/sendMessage", sendMessageRequest{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	var env apiEnvelope
	if err := resp.Decode(&env); err != nil {
		return fmt.Errorf("failed to decode sendMessage response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("sendMessage rejected: %s", env.Description)
	}

	logger.Debug(ctx, "Telegram notification sent", "length", len(text))
	return nil
}

// SendTradeAlert formats and sends a fill notification.
func (n *Notifier) SendTradeAlert(ctx context.Context, record types.TradeRecord) error {
	return n.SendNotification(ctx, FormatTradeAlert(record))
}

// FormatTradeAlert renders the fill message sent after every executed trade.
func FormatTradeAlert(record types.TradeRecord) string {
	var b strings.Builder
	b.WriteString("🎯 TRADE ALERT!\n\n")
	fmt.Fprintf(&b, "📊 %s\n", record.Instrument)
	fmt.Fprintf(&b, "📈 %s\n", strings.ToUpper(string(record.Side)))
	fmt.Fprintf(&b, "💰 %.2f units\n", record.Units)
	fmt.Fprintf(&b, "💵 Price: %.5f\n", record.Price)
	fmt.Fprintf(&b, "🎯 Confidence: %.1f%%", record.Confidence*100)
	return b.String()
}

// Ping verifies the bot token with a getMe call.
func (n *Notifier) Ping(ctx context.Context) error {
	resp, err := n.client.GET(ctx, "/getMe", nil)
	if err != nil {
		return fmt.Errorf("getMe failed: %w", err)
	}
	var env apiEnvelope
	if err := resp.Decode(&env); err != nil {
		return fmt.Errorf("failed to decode getMe response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("getMe rejected: %s", env.Description)
	}
	return nil
}
