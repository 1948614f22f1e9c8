package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"polyagent/internal/config"
	"polyagent/internal/executor"
	"polyagent/internal/logger"
	"polyagent/internal/strategy"
	"polyagent/internal/types"
)

// EquityPoint 是一个时间戳上的组合估值。
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Result 是一次回测的完整产出。
type Result struct {
	RunID   string                 `json:"run_id"`
	Start   time.Time              `json:"start"`
	End     time.Time              `json:"end"`
	Ticks   int                    `json:"ticks"`
	Metrics Metrics                `json:"metrics"`
	Equity  []EquityPoint          `json:"equity"`
	Trades  []executor.TradeRecord `json:"-"`
}

// Engine 在历史数据上重放策略。
// 信号通过聚合后直接全量执行:回测衡量的是策略本身的判断,
// 风控限额和条件单护栏留给实盘路径。
type Engine struct {
	cfg      *config.Config
	provider *HistoricalProvider
}

func NewEngine(cfg *config.Config, provider *HistoricalProvider) *Engine {
	return &Engine{cfg: cfg, provider: provider}
}

// Run 重放 [start, end] 区间内的全部时间戳。零值边界表示不限。
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	strategies := strategy.Build(e.cfg.Strategies)
	trader := executor.NewPaperTrader(e.cfg.StartingBalance, nil)

	timestamps := filterRange(e.provider.Timestamps(), start, end)
	result := &Result{RunID: uuid.NewString()}
	if len(timestamps) > 0 {
		result.Start = timestamps[0]
		result.End = timestamps[len(timestamps)-1]
	}

	for _, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.provider.Advance(ts)

		markets, err := e.provider.GetActiveMarkets(ctx, e.cfg.Markets.Tag, e.cfg.Markets.Limit)
		if err != nil {
			logger.Errorf("backtest: markets at %s: %v", ts, err)
			continue
		}

		var raw []types.Signal
		for _, strat := range strategies {
			sigs, err := strat.Analyze(ctx, markets, e.provider)
			if err != nil {
				logger.Errorf("backtest: strategy %s at %s: %v", strat.Name(), ts, err)
				continue
			}
			raw = append(raw, sigs...)
		}
		aggregated := strategy.Aggregate(raw, e.cfg.Aggregation.MinConfidence, e.cfg.Aggregation.MinStrategies)

		for _, sig := range aggregated {
			if _, err := trader.PlaceOrder(ctx, sig); err != nil {
				logger.Errorf("backtest: order at %s: %v", ts, err)
			}
		}

		e.markPositions(ctx, trader)
		result.Equity = append(result.Equity, EquityPoint{
			Timestamp: ts,
			Value:     trader.GetPortfolio().TotalValue(),
		})
		result.Ticks++
	}

	result.Trades = trader.Trades()
	result.Metrics = computeMetrics(e.cfg.StartingBalance, equityValues(result.Equity), result.Trades)
	logger.Infof("backtest %s: %d ticks, %d trades, return %.2f%%",
		result.RunID, result.Ticks, result.Metrics.Trades, result.Metrics.TotalReturn*100)
	return result, nil
}

// markPositions 用游标时刻的 bid 刷新持仓估值。
func (e *Engine) markPositions(ctx context.Context, trader *executor.PaperTrader) {
	for token := range trader.GetPortfolio().Positions {
		spread, err := e.provider.GetPrice(ctx, token)
		if err != nil {
			continue
		}
		trader.MarkPrice(token, spread.Bid)
	}
}

func filterRange(timestamps []time.Time, start, end time.Time) []time.Time {
	var out []time.Time
	for _, ts := range timestamps {
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		out = append(out, ts)
	}
	return out
}

func equityValues(points []EquityPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
