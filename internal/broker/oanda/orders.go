package oanda

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/types"
)

type orderBody struct {
	Order struct {
		Type           string     `json:"type"`
		Instrument     string     `json:"instrument"`
		Units          string     `json:"units"`
		ClientExtGroup *clientExt `json:"clientExtensions,omitempty"`
		StopLossOnFill *priceOn   `json:"stopLossOnFill,omitempty"`
		TakeProfitOn   *priceOn   `json:"takeProfitOnFill,omitempty"`
	} `json:"order"`
}

type clientExt struct {
	ID string `json:"id"`
}

type priceOn struct {
	Price string `json:"price"`
}

type orderResponse struct {
	OrderFillTransaction struct {
		ID    string `json:"id"`
		Price string `json:"price"`
		Time  string `json:"time"`
		Units string `json:"units"`
	} `json:"orderFillTransaction"`
}

// PlaceOrder submits a market order. In DRY_RUN mode the fill is simulated
// locally and nothing reaches the upstream API.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderFill, error) {
	if req.Units == 0 {
		return types.OrderFill{}, fmt.Errorf("refusing zero-unit order for %s", req.Instrument)
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	if c.p.Mode == "DRY_RUN" {
		logger.Info(ctx, "Simulated order fill",
			"instrument", req.Instrument,
			"units", req.Units,
			"client_id", req.ClientID,
		)
		return types.OrderFill{
			OrderID:    "dry-" + req.ClientID,
			Instrument: req.Instrument,
			Units:      req.Units,
			Price:      0,
			Timestamp:  time.Now().UTC(),
		}, nil
	}

	var body orderBody
	body.Order.Type = "MARKET"
	body.Order.Instrument = req.Instrument
	body.Order.Units = strconv.FormatFloat(req.Units, 'f', 2, 64)
	body.Order.ClientExtGroup = &clientExt{ID: req.ClientID}
	if req.StopLoss > 0 {
		body.Order.StopLossOnFill = &priceOn{Price: formatPrice(req.Instrument, req.StopLoss)}
	}
	if req.TakeProfit > 0 {
		body.Order.TakeProfitOn = &priceOn{Price: formatPrice(req.Instrument, req.TakeProfit)}
	}

	resp, err := c.http.POST(ctx, c.accountPath("/orders"), body)
	if err != nil {
		return types.OrderFill{}, fmt.Errorf("place order %s: %w", req.Instrument, err)
	}

	var out orderResponse
	if err := resp.Decode(&out); err != nil {
		return types.OrderFill{}, fmt.Errorf("decode order response %s: %w", req.Instrument, err)
	}
	if out.OrderFillTransaction.ID == "" {
		return types.OrderFill{}, fmt.Errorf("order for %s was not filled", req.Instrument)
	}

	ts, _ := time.Parse(time.RFC3339Nano, out.OrderFillTransaction.Time)
	return types.OrderFill{
		OrderID:    out.OrderFillTransaction.ID,
		Instrument: req.Instrument,
		Units:      parseFloat(out.OrderFillTransaction.Units),
		Price:      parseFloat(out.OrderFillTransaction.Price),
		Timestamp:  ts,
	}, nil
}

// ClosePosition closes an open position by submitting the opposite market
// order. units == 0 closes the full position.
func (c *Client) ClosePosition(ctx context.Context, instrument string, units float64) (types.OrderFill, error) {
	positions, err := c.GetPositions(ctx)
	if err != nil {
		return types.OrderFill{}, err
	}

	for _, pos := range positions {
		if pos.Instrument != instrument {
			continue
		}
		closeUnits := units
		if closeUnits == 0 {
			closeUnits = math.Abs(pos.Units)
		}
		// Opposite sign of the open position.
		if pos.Units > 0 {
			closeUnits = -closeUnits
		}
		return c.PlaceOrder(ctx, types.OrderRequest{
			Instrument: instrument,
			Units:      closeUnits,
		})
	}
	return types.OrderFill{}, fmt.Errorf("no open position for %s", instrument)
}

type positionsResponse struct {
	Positions []struct {
		Instrument string `json:"instrument"`
		Long       struct {
			Units        string `json:"units"`
			UnrealizedPL string `json:"unrealizedPL"`
		} `json:"long"`
		Short struct {
			Units        string `json:"units"`
			UnrealizedPL string `json:"unrealizedPL"`
		} `json:"short"`
	} `json:"positions"`
}

func (c *Client) GetPositions(ctx context.Context) ([]types.Position, error) {
	resp, err := c.http.GET(ctx, c.accountPath("/openPositions"), nil)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	var body positionsResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	positions := make([]types.Position, 0, len(body.Positions))
	for _, p := range body.Positions {
		longUnits := parseFloat(p.Long.Units)
		shortUnits := parseFloat(p.Short.Units)
		switch {
		case longUnits > 0:
			positions = append(positions, types.Position{
				Instrument:    p.Instrument,
				Units:         longUnits,
				Side:          "long",
				UnrealizedPnL: parseFloat(p.Long.UnrealizedPL),
			})
		case shortUnits != 0:
			positions = append(positions, types.Position{
				Instrument:    p.Instrument,
				Units:         shortUnits,
				Side:          "short",
				UnrealizedPnL: parseFloat(p.Short.UnrealizedPL),
			})
		}
	}
	return positions, nil
}

// formatPrice renders a price with the conventional precision for the pair:
// 3 decimals for JPY quotes, 5 otherwise.
func formatPrice(instrument string, price float64) string {
	if types.PipValue(instrument) == 0.01 {
		return strconv.FormatFloat(price, 'f', 3, 64)
	}
	return strconv.FormatFloat(price, 'f', 5, 64)
}
