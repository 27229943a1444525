package telegram

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"forex-trading-bot/internal/engine"
	"forex-trading-bot/internal/logger"
)

// CommandSink queues operator commands for execution inside a scheduler
// tick. Submit returns false when the queue is full.
type CommandSink interface {
	Submit(cmd engine.Command) bool
}

// commandList drives /start and /help output and the parse table. Order is
// the order shown to the operator.
var commandList = []struct {
	name string
	kind engine.CommandKind
	help string
}{
	{"/status", engine.CmdStatus, "Full diagnostic: trades, win/loss, P&L, open positions, news impact"},
	{"/maketrade", engine.CmdMakeTrade, "Places a real-time trade and schedules exit automatically"},
	{"/whatyoudoin", engine.CmdWhatYouDoin, "Shows current action: scraping, scanning, idle, trading"},
	{"/canceltrade", engine.CmdCancelTrade, "Instantly closes all open positions and halts trading"},
	{"/showlog", engine.CmdShowLog, "Sends the most recent actions (trades, signals, scrapes, errors)"},
	{"/togglemode", engine.CmdToggleMode, "Switch between aggressive/safe trading logic"},
	{"/resetbot", engine.CmdResetBot, "Fully resets state and trading loops"},
	{"/pnl", engine.CmdPnL, "Instantly return profit/loss"},
	{"/openpositions", engine.CmdOpenPositions, "Show all open positions"},
	{"/strategystats", engine.CmdStrategyStats, "Strategy performance summary"},
}

// Poller runs the inbound half of the Telegram channel: a getUpdates long
// poll that parses slash commands from the configured chat and queues them
// on the engine.
type Poller struct {
	notifier     *Notifier
	sink         CommandSink
	chatID       int64
	offset       int64
	pollTimeout  time.Duration
	replyTimeout time.Duration
}

func NewPoller(notifier *Notifier, sink CommandSink) *Poller {
	chatID, _ := strconv.ParseInt(notifier.chatID, 10, 64)
	return &Poller{
		notifier:     notifier,
		sink:         sink,
		chatID:       chatID,
		pollTimeout:  30 * time.Second,
		replyTimeout: 10 * time.Second,
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run long-polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	logger.Info(ctx, "Telegram command poller started")
	for {
		updates, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn(ctx, "getUpdates failed, backing off", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			p.handle(ctx, u)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]update, error) {
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(p.offset, 10))
	query.Set("timeout", strconv.Itoa(int(p.pollTimeout/time.Second)))

	resp, err := p.notifier.client.GET(ctx, "/getUpdates", query)
	if err != nil {
		return nil, err
	}
	var out updatesResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (p *Poller) handle(ctx context.Context, u update) {
	if u.Message == nil || !strings.HasPrefix(u.Message.Text, "/") {
		return
	}
	if u.Message.Chat.ID != p.chatID {
		logger.Warn(ctx, "Ignoring command from unauthorized chat", "chat_id", u.Message.Chat.ID)
		return
	}

	reply := p.dispatch(ctx, parseCommand(u.Message.Text))
	if err := p.notifier.SendNotification(ctx, reply); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send command reply", err)
	}
}

// parseCommand strips the bot-mention suffix and any arguments.
func parseCommand(text string) string {
	cmd := strings.Fields(text)[0]
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func (p *Poller) dispatch(ctx context.Context, cmd string) string {
	switch cmd {
	case "/start":
		return "🤖 AI Forex Trading Bot Started!\n\nAvailable commands:\n" + helpLines()
	case "/help":
		return "🤖 AI Forex Trading Bot Help\n\nAvailable Commands:\n\n" + helpLines()
	}

	for _, c := range commandList {
		if c.name != cmd {
			continue
		}
		reply := make(chan string, 1)
		if !p.sink.Submit(engine.Command{Kind: c.kind, Reply: reply}) {
			return "⏳ Bot is busy, please try again shortly"
		}
		select {
		case msg := <-reply:
			return msg
		case <-time.After(p.replyTimeout):
			return "⏳ Command queued, the bot is still working on it"
		case <-ctx.Done():
			return "🛑 Bot is shutting down"
		}
	}
	return "❌ Unknown command. Send /help for the command list"
}

func helpLines() string {
	var b strings.Builder
	for _, c := range commandList {
		b.WriteString(c.name + " - " + c.help + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
