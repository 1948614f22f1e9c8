package backtest

import (
	"math"

	"polyagent/internal/executor"
	"polyagent/internal/types"
)

// 夏普比率按日频收益年化
const annualizationFactor = 252

// Metrics 是一次回测的绩效汇总。
type Metrics struct {
	InitialBalance float64 `json:"initial_balance"`
	FinalValue     float64 `json:"final_value"`
	TotalReturn    float64 `json:"total_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
}

func computeMetrics(initial float64, equity []float64, trades []executor.TradeRecord) Metrics {
	m := Metrics{InitialBalance: initial, Trades: len(trades)}

	final := initial
	if len(equity) > 0 {
		final = equity[len(equity)-1]
	}
	m.FinalValue = final
	if initial > 0 {
		m.TotalReturn = (final - initial) / initial
	}

	m.SharpeRatio = sharpeRatio(equity)
	m.MaxDrawdown = maxDrawdown(equity)
	m.WinRate, m.ProfitFactor, m.Wins, m.Losses = tradeStats(trades)
	return m
}

// sharpeRatio 用相邻权益点的百分比收益,样本标准差,年化 sqrt(252)。
// 收益点不足两个或波动为零时返回 0。
func sharpeRatio(equity []float64) float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualizationFactor)
}

// maxDrawdown 历史峰值回撤的最大值,返回正分数。
func maxDrawdown(equity []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// tradeStats 按 token 记录最近一次买入价,卖出时按价差判胜负。
// 没有亏损单时利润因子:有盈利记 +Inf,否则 0。
func tradeStats(trades []executor.TradeRecord) (winRate, profitFactor float64, wins, losses int) {
	lastBuy := make(map[string]float64)
	grossProfit, grossLoss := 0.0, 0.0

	for _, trade := range trades {
		switch trade.Side {
		case types.SideBuy:
			lastBuy[trade.TokenID] = trade.Price
		case types.SideSell:
			entry, ok := lastBuy[trade.TokenID]
			if !ok {
				continue
			}
			pnl := (trade.Price - entry) * trade.Shares
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else if pnl < 0 {
				losses++
				grossLoss += -pnl
			}
		}
	}

	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses)
	}
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor, wins, losses
}
