package risk

import (
	"fmt"
	"math"

	"polyagent/internal/config"
	"polyagent/internal/types"
)

// Snapshot 是一轮 tick 开始时的风控状态快照。
// 同一轮内每成交一单就地推进,保证本轮后续信号看到的是
// 包含已接受订单的最新状态,而不是轮初的陈旧值。
type Snapshot struct {
	DailyLoss  float64
	OpenOrders int
}

// NewSnapshot 由当日已发生的买卖流水与未结订单数构造。
// 当日净流出(买入-卖出)为负时视为 0,盈利日不产生"负亏损"额度。
func NewSnapshot(dailyBuys, dailySells float64, openOrders int) *Snapshot {
	return &Snapshot{
		DailyLoss:  math.Max(0, dailyBuys-dailySells),
		OpenOrders: openOrders,
	}
}

// Advance 在一笔订单被接受后推进快照。
// holdsOpen 表示执行器的成交会留下未结订单(实盘);
// 纸面成交即时结清,不占用 open_orders 额度。
func (s *Snapshot) Advance(side types.Side, size float64, holdsOpen bool) {
	switch side {
	case types.SideBuy:
		s.DailyLoss += size
	case types.SideSell:
		s.DailyLoss = math.Max(0, s.DailyLoss-size)
	}
	if holdsOpen {
		s.OpenOrders++
	}
}

// Gate 按配置的硬限额拦截信号。
type Gate struct {
	cfg config.RiskConfig
}

func NewGate(cfg config.RiskConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Check 返回空串表示放行,否则返回可读的拒绝原因。
// 检查顺序固定:单笔限额 → 重复建仓 → 当日亏损 → 未结订单数。
func (g *Gate) Check(sig types.Signal, portfolio types.Portfolio, snap *Snapshot) string {
	if sig.Size > g.cfg.MaxPositionSize {
		return fmt.Sprintf("size %.2f exceeds max_position_size %.2f", sig.Size, g.cfg.MaxPositionSize)
	}
	if sig.Side == types.SideBuy {
		if pos, ok := portfolio.Positions[sig.TokenID]; ok && pos.Shares > 0 {
			return fmt.Sprintf("already holding %.2f shares of %s, no averaging in", pos.Shares, sig.TokenID)
		}
	}
	if snap.DailyLoss >= g.cfg.MaxDailyLoss {
		return fmt.Sprintf("daily_loss %.2f reached max_daily_loss %.2f", snap.DailyLoss, g.cfg.MaxDailyLoss)
	}
	if snap.OpenOrders >= g.cfg.MaxOpenOrders {
		return fmt.Sprintf("open orders %d reached max_open_orders %d", snap.OpenOrders, g.cfg.MaxOpenOrders)
	}
	return ""
}
