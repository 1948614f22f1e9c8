package executor

import (
	"context"
	"fmt"

	"polyagent/internal/config"
	"polyagent/internal/store"
	"polyagent/internal/types"
)

// Executor 负责把通过风控的信号变成成交。
type Executor interface {
	// PlaceOrder 执行一笔订单。返回 (nil, nil) 表示订单未成交
	// (余额不足、无持仓可卖等),不算错误。
	PlaceOrder(ctx context.Context, sig types.Signal) (*types.Order, error)
	// GetPortfolio 返回当前组合的副本。
	GetPortfolio() types.Portfolio
	// CancelOrder 撤销一笔未结订单。纸面执行器即时结清,永远返回 false。
	CancelOrder(ctx context.Context, orderID string) bool
	// OpenOrders 返回当前未结订单。
	OpenOrders(ctx context.Context) []types.Order
	// HoldsOpenOrders 报告成交后是否会留下未结订单占用风控额度。
	// 纸面成交即时结清,返回 false。
	HoldsOpenOrders() bool
}

// New 按运行模式构造执行器。monitor 和 paper 都用纸面执行器,
// monitor 模式由调度层保证不下单。
// live 模式先校验凭据,再明确拒绝:链上 CLOB 客户端不在本仓库内。
func New(cfg *config.Config, st *store.Store) (Executor, error) {
	switch cfg.Mode {
	case config.ModeMonitor, config.ModePaper:
		return NewPaperTrader(cfg.StartingBalance, st), nil
	case config.ModeLive:
		if cfg.Live.PrivateKey == "" {
			return nil, fmt.Errorf("live mode requires live.private_key (or POLYMARKET_PRIVATE_KEY env)")
		}
		return nil, fmt.Errorf("live execution is not available in this build")
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
