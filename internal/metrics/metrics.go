package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 全部指标挂默认 registry,transport 层的 /metrics 直接暴露。
var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_ticks_total",
		Help: "Completed decision ticks.",
	})

	TickErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_tick_errors_total",
		Help: "Ticks that aborted with an error.",
	})

	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyagent_signals_total",
		Help: "Raw signals produced, by strategy.",
	}, []string{"strategy"})

	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyagent_trades_total",
		Help: "Executed trades, by side.",
	}, []string{"side"})

	RiskRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyagent_risk_rejections_total",
		Help: "Signals rejected by the risk gate, by limit hit.",
	}, []string{"limit"})

	ConditionalTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyagent_conditional_triggers_total",
		Help: "Conditional orders fired, by type.",
	}, []string{"type"})

	ExitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyagent_exits_total",
		Help: "Positions closed by the exit manager.",
	})

	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyagent_config_reloads_total",
		Help: "Hot reload attempts, by outcome.",
	}, []string{"outcome"})

	PortfolioBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyagent_portfolio_balance",
		Help: "Cash balance in USDC.",
	})

	PortfolioTotalValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyagent_portfolio_total_value",
		Help: "Cash plus mark-to-market position value in USDC.",
	})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyagent_open_positions",
		Help: "Number of open positions.",
	})
)

// RejectionLimit 把风控的自由文本原因折叠成低基数标签。
func RejectionLimit(reason string) string {
	switch {
	case strings.Contains(reason, "max_position_size"):
		return "max_position_size"
	case strings.Contains(reason, "already holding"):
		return "duplicate_position"
	case strings.Contains(reason, "max_daily_loss"):
		return "max_daily_loss"
	case strings.Contains(reason, "max_open_orders"):
		return "max_open_orders"
	default:
		return "other"
	}
}
