package oanda

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"forex-trading-bot/internal/types"
)

type pricingResponse struct {
	Prices []struct {
		Instrument string `json:"instrument"`
		Time       string `json:"time"`
		Bids       []struct {
			Price string `json:"price"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
		} `json:"asks"`
	} `json:"prices"`
}

func (c *Client) GetPrices(ctx context.Context, instruments []string) (map[string]types.PriceQuote, error) {
	q := url.Values{}
	q.Set("instruments", strings.Join(instruments, ","))

	resp, err := c.http.GET(ctx, c.accountPath("/pricing"), q)
	if err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}

	var body pricingResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	prices := make(map[string]types.PriceQuote, len(body.Prices))
	for _, p := range body.Prices {
		if len(p.Bids) == 0 || len(p.Asks) == 0 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Time)
		prices[p.Instrument] = types.PriceQuote{
			Instrument: p.Instrument,
			Bid:        parseFloat(p.Bids[0].Price),
			Ask:        parseFloat(p.Asks[0].Price),
			Timestamp:  ts,
		}
	}
	return prices, nil
}

type candlesResponse struct {
	Candles []struct {
		Complete bool   `json:"complete"`
		Time     string `json:"time"`
		Volume   int64  `json:"volume"`
		Mid      struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// GetCandles returns only completed bars, oldest first.
func (c *Client) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]types.Candle, error) {
	q := url.Values{}
	q.Set("granularity", granularity)
	q.Set("count", strconv.Itoa(count))

	resp, err := c.http.GET(ctx, "/v3/instruments/"+instrument+"/candles", q)
	if err != nil {
		return nil, fmt.Errorf("get candles %s: %w", instrument, err)
	}

	var body candlesResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode candles %s: %w", instrument, err)
	}

	candles := make([]types.Candle, 0, len(body.Candles))
	for _, bar := range body.Candles {
		if !bar.Complete {
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, bar.Time)
		candles = append(candles, types.Candle{
			Ts:    ts.Unix(),
			Open:  parseFloat(bar.Mid.O),
			High:  parseFloat(bar.Mid.H),
			Low:   parseFloat(bar.Mid.L),
			Close: parseFloat(bar.Mid.C),
			Vol:   float64(bar.Volume),
		})
	}
	return candles, nil
}

// IsSpreadAcceptable reports whether the instrument's current spread is at
// or below maxPips.
func (c *Client) IsSpreadAcceptable(ctx context.Context, instrument string, maxPips float64) (bool, error) {
	prices, err := c.GetPrices(ctx, []string{instrument})
	if err != nil {
		return false, err
	}
	quote, ok := prices[instrument]
	if !ok {
		return false, fmt.Errorf("no price for %s", instrument)
	}
	return types.SpreadInPips(instrument, quote.Spread()) <= maxPips, nil
}
