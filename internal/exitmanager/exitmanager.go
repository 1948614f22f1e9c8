package exitmanager

import (
	"fmt"
	"math"
	"sort"
	"time"

	"polyagent/internal/config"
	"polyagent/internal/logger"
	"polyagent/internal/types"
)

// arb 持仓在价格回到均价附近这个带宽内视为套利机会已收敛
const arbClosedTolerance = 0.02

// Manager 给已有持仓兜底:不管当初哪个策略开的仓,
// 到了离场条件就生成卖出信号。检查按优先级排列,
// 止盈 > 止损 > 信号反转 > 持仓超时,命中即停。
type Manager struct {
	cfg config.ExitManagerConfig
}

func New(cfg config.ExitManagerConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Evaluate 扫描全部持仓,返回应平仓的卖出信号。
// 持仓的 CurrentPrice 必须在调用前刷新过;没有新鲜价格、
// 均价或份额非法的持仓直接跳过。输出按 token 排序,稳定可比。
func (m *Manager) Evaluate(portfolio types.Portfolio, now time.Time) []types.Signal {
	tokens := make([]string, 0, len(portfolio.Positions))
	for token := range portfolio.Positions {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	var signals []types.Signal
	for _, token := range tokens {
		pos := portfolio.Positions[token]
		if pos.AvgPrice <= 0 || pos.Shares <= 0 || pos.CurrentPrice <= 0 {
			continue
		}
		reason := m.exitReason(pos, now)
		if reason == "" {
			continue
		}
		logger.Infof("exit_manager: closing %s: %s", token, reason)
		signals = append(signals, types.Signal{
			Strategy:    "exit_manager",
			MarketID:    pos.MarketID,
			TokenID:     token,
			Side:        types.SideSell,
			Confidence:  1.0,
			TargetPrice: pos.CurrentPrice,
			Size:        pos.Shares * pos.CurrentPrice,
			Reason:      reason,
		})
	}
	return signals
}

func (m *Manager) exitReason(pos types.Position, now time.Time) string {
	entry, current := pos.AvgPrice, pos.CurrentPrice
	changePct := (current - entry) / entry

	if current >= entry*(1+m.cfg.ProfitTargetPct) {
		return fmt.Sprintf("profit_target: %+.1f%% (entry=%.4f, current=%.4f)", changePct*100, entry, current)
	}
	if current <= entry*(1-m.cfg.StopLossPct) {
		return fmt.Sprintf("stop_loss: %+.1f%% (entry=%.4f, current=%.4f)", changePct*100, entry, current)
	}
	if m.cfg.SignalReversal {
		if reason := reversalReason(pos); reason != "" {
			return reason
		}
	}
	if age := now.Sub(pos.OpenedAt); age > time.Duration(m.cfg.MaxHoldHours*float64(time.Hour)) {
		return fmt.Sprintf("stale: held %.1fh > max %gh", age.Hours(), m.cfg.MaxHoldHours)
	}
	return ""
}

// reversalReason 判断开仓策略的原始逻辑是否已失效。
// 不认识的策略(含恢复时补的 unknown)不做反转判断。
func reversalReason(pos types.Position) string {
	switch pos.EntryStrategy {
	case "signal_trader":
		// 低于中点买入的仓位,价格回到中点之上说明方向论点兑现
		if pos.CurrentPrice >= 0.5 {
			return fmt.Sprintf("signal_reversal: price %.4f crossed above midpoint (0.5)", pos.CurrentPrice)
		}
	case "arbitrageur":
		if math.Abs(pos.CurrentPrice-pos.AvgPrice)/pos.AvgPrice < arbClosedTolerance {
			return fmt.Sprintf("signal_reversal: arb deviation closed (entry=%.4f, current=%.4f)", pos.AvgPrice, pos.CurrentPrice)
		}
	}
	return ""
}
