package oanda

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"forex-trading-bot/internal/api"
	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/types"
)

// Params configures the OANDA client.
type Params struct {
	BaseURL           string
	APIKey            string
	AccountID         string
	Mode              string // DRY_RUN simulates order fills locally
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client talks to the OANDA v3 REST API. All calls are rate limited and
// bounded by the per-request timeout, so a slow endpoint degrades one cycle
// instead of wedging the scheduler.
type Client struct {
	p    Params
	http *api.Client
}

var _ interfaces.Broker = (*Client)(nil)

func New(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = "https://api-fxpractice.oanda.com"
	}
	if p.Timeout == 0 {
		p.Timeout = 10 * time.Second
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = 10
	}

	httpClient := api.NewClient(
		api.WithBaseURL(p.BaseURL),
		api.WithTimeout(p.Timeout),
		api.WithHeader("Authorization", "Bearer "+p.APIKey),
		api.WithHeader("Content-Type", "application/json"),
		api.WithRateLimit(p.RequestsPerSecond),
		api.WithLogging(true),
	)

	return &Client{p: p, http: httpClient}
}

func (c *Client) accountPath(suffix string) string {
	return "/v3/accounts/" + c.p.AccountID + suffix
}

// Ping checks connectivity by fetching the account summary. Used by the
// health probe; a failure here marks the broker disconnected for the cycle.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.http.GET(ctx, c.accountPath(""), nil)
	return err
}

type accountResponse struct {
	Account struct {
		Balance      string `json:"balance"`
		Currency     string `json:"currency"`
		MarginRate   string `json:"marginRate"`
		UnrealizedPL string `json:"unrealizedPL"`
		RealizedPL   string `json:"pl"`
	} `json:"account"`
}

func (c *Client) GetAccountInfo(ctx context.Context) (types.AccountInfo, error) {
	resp, err := c.http.GET(ctx, c.accountPath(""), nil)
	if err != nil {
		return types.AccountInfo{}, fmt.Errorf("get account info: %w", err)
	}

	var body accountResponse
	if err := resp.Decode(&body); err != nil {
		return types.AccountInfo{}, fmt.Errorf("decode account info: %w", err)
	}

	return types.AccountInfo{
		Balance:       parseFloat(body.Account.Balance),
		Currency:      body.Account.Currency,
		MarginRate:    parseFloat(body.Account.MarginRate),
		UnrealizedPnL: parseFloat(body.Account.UnrealizedPL),
		RealizedPnL:   parseFloat(body.Account.RealizedPL),
	}, nil
}

// parseFloat converts OANDA's string-encoded decimals; malformed values
// come back as 0 rather than failing the whole response.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
