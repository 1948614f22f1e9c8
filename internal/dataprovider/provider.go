package dataprovider

import (
	"context"

	"polyagent/internal/types"
)

// Provider 是行情数据源的统一抽象。
// 实盘由 polymarket CLI 封装实现,回测由历史数据游标实现。
type Provider interface {
	// GetActiveMarkets 返回当前活跃市场,tag 为空表示不过滤。
	GetActiveMarkets(ctx context.Context, tag string, limit int) ([]types.Market, error)
	// GetOrderBook 返回指定 token 的盘口。
	GetOrderBook(ctx context.Context, tokenID string) (types.OrderBook, error)
	// GetPrice 返回指定 token 的买卖价。该 token 无价格数据时返回错误。
	GetPrice(ctx context.Context, tokenID string) (types.Spread, error)
	// GetPriceHistory 返回指定 token 的历史价格序列。
	GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) ([]types.PricePoint, error)
}
