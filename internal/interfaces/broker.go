package interfaces

import (
	"context"

	"forex-trading-bot/internal/types"
)

// Broker is the market-data and order-execution collaborator.
type Broker interface {
	GetAccountInfo(ctx context.Context) (types.AccountInfo, error)
	GetPrices(ctx context.Context, instruments []string) (map[string]types.PriceQuote, error)
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]types.Candle, error)
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderFill, error)
	ClosePosition(ctx context.Context, instrument string, units float64) (types.OrderFill, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
	IsSpreadAcceptable(ctx context.Context, instrument string, maxPips float64) (bool, error)
	Ping(ctx context.Context) error
}
