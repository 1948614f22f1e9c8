package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"polyagent/internal/alerts"
	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/executor"
	"polyagent/internal/exitmanager"
	"polyagent/internal/logger"
	"polyagent/internal/metrics"
	"polyagent/internal/orders"
	"polyagent/internal/risk"
	"polyagent/internal/sizing"
	"polyagent/internal/store"
	"polyagent/internal/store/model"
	"polyagent/internal/strategy"
	"polyagent/internal/types"
)

// TickSummary 是一轮决策循环的产出统计。
type TickSummary struct {
	MarketsFetched       int
	SignalsGenerated     int
	TradesExecuted       int
	ConditionalTriggered int
	ExitsExecuted        int
}

// SignalCache 是最近一轮聚合后的信号,供 HTTP 层查询。
type SignalCache struct {
	Timestamp time.Time
	Signals   []types.Signal
}

// Orchestrator 串起一轮完整决策:
// 条件单巡检 → 行情 → 策略 → 聚合 → 退出检查 → 风控定容 → 执行 → 快照。
// 热重载只换策略和参数,执行器及其持仓在整个进程生命周期内不动。
type Orchestrator struct {
	mu sync.Mutex

	cfg          *config.Config
	provider     dataprovider.Provider
	exec         executor.Executor
	store        *store.Store
	strategies   []strategy.Strategy
	sizer        *sizing.Sizer
	gate         *risk.Gate
	exits        *exitmanager.Manager
	alerter      *alerts.Manager
	conditionals *orders.Engine

	lastSignals  SignalCache
	lastSnapshot time.Time
}

func New(cfg *config.Config, provider dataprovider.Provider, exec executor.Executor, st *store.Store) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		provider:     provider,
		exec:         exec,
		store:        st,
		strategies:   strategy.Build(cfg.Strategies),
		sizer:        sizing.New(cfg.PositionSizing),
		gate:         risk.NewGate(cfg.Risk),
		exits:        exitmanager.New(cfg.ExitManager),
		alerter:      alerts.NewManager(cfg.Alerts),
		conditionals: orders.NewEngine(cfg.ConditionalOrders, st, provider, exec),
	}
}

// Tick 跑一轮完整决策循环。
func (o *Orchestrator) Tick(ctx context.Context) (TickSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var summary TickSummary
	cfg := o.cfg

	// 1. 条件单先于一切:保护现有持仓比找新机会优先
	if cfg.ConditionalOrders.Enabled && !cfg.IsMonitor() {
		triggered, err := o.conditionals.CheckAll(ctx)
		if err != nil {
			logger.Errorf("tick: conditional check failed: %v", err)
		}
		summary.ConditionalTriggered = triggered
	}

	// 2. 行情
	markets, err := o.provider.GetActiveMarkets(ctx, cfg.Markets.Tag, cfg.Markets.Limit)
	if err != nil {
		metrics.TickErrorsTotal.Inc()
		return summary, fmt.Errorf("fetch markets: %w", err)
	}
	markets = filterFocus(markets, cfg.Markets.Focus)
	summary.MarketsFetched = len(markets)

	// 3. 策略,单个失败不拖垮整轮
	var raw []types.Signal
	for _, strat := range o.strategies {
		sigs, err := strat.Analyze(ctx, markets, o.provider)
		if err != nil {
			logger.Errorf("tick: strategy %s failed: %v", strat.Name(), err)
			continue
		}
		metrics.SignalsTotal.WithLabelValues(strat.Name()).Add(float64(len(sigs)))
		raw = append(raw, sigs...)
	}

	// 4. 聚合并缓存
	aggregated := strategy.Aggregate(raw, cfg.Aggregation.MinConfidence, cfg.Aggregation.MinStrategies)
	o.lastSignals = SignalCache{Timestamp: time.Now(), Signals: aggregated}
	summary.SignalsGenerated = len(aggregated)

	// 5. 留痕
	for _, sig := range aggregated {
		if err := o.store.LogSignal(ctx, sig, model.SignalStatusGenerated, ""); err != nil {
			logger.Debugf("tick: failed to log signal: %v", err)
		}
	}

	// 6. 退出检查,卖出不过风控和定容
	if cfg.ExitManager.Enabled && !cfg.IsMonitor() {
		summary.ExitsExecuted = o.runExits(ctx)
	}

	// 7. 执行
	if !cfg.IsMonitor() {
		summary.TradesExecuted = o.executeSignals(ctx, aggregated)
	}

	// 8. 快照:有成交强制写,否则按间隔
	traded := summary.TradesExecuted+summary.ExitsExecuted+summary.ConditionalTriggered > 0
	o.maybeSnapshot(ctx, traded)

	o.publishPortfolioMetrics()
	metrics.TicksTotal.Inc()
	logger.Infof("tick done: markets=%d signals=%d trades=%d exits=%d conditional=%d",
		summary.MarketsFetched, summary.SignalsGenerated, summary.TradesExecuted,
		summary.ExitsExecuted, summary.ConditionalTriggered)
	return summary, nil
}

// runExits 刷新持仓市价后执行退出规则,随后清掉该 token 的条件单。
func (o *Orchestrator) runExits(ctx context.Context) int {
	o.refreshPositionPrices(ctx)

	executed := 0
	for _, sig := range o.exits.Evaluate(o.exec.GetPortfolio(), time.Now()) {
		placed, err := o.exec.PlaceOrder(ctx, sig)
		if err != nil {
			logger.Errorf("tick: exit sell for %s failed: %v", sig.TokenID, err)
			continue
		}
		if placed == nil {
			continue
		}
		executed++
		metrics.ExitsTotal.Inc()
		metrics.TradesTotal.WithLabelValues(string(sig.Side)).Inc()
		if err := o.store.LogSignal(ctx, sig, model.SignalStatusExecuted, ""); err != nil {
			logger.Debugf("tick: failed to log exit signal: %v", err)
		}
		if err := o.conditionals.CancelForToken(ctx, sig.TokenID); err != nil {
			logger.Errorf("tick: failed to cancel conditionals for %s: %v", sig.TokenID, err)
		}
		o.alerter.Sendf("exit: sold %s (%s)", sig.TokenID, sig.Reason)
	}
	return executed
}

// executeSignals 对聚合信号走定容 → 风控 → 下单,
// 风控快照随本轮已接受的订单推进。
func (o *Orchestrator) executeSignals(ctx context.Context, signals []types.Signal) int {
	if len(signals) == 0 {
		return 0
	}
	snap, err := o.buildRiskSnapshot(ctx)
	if err != nil {
		logger.Errorf("tick: risk snapshot failed, skipping execution: %v", err)
		return 0
	}

	executed := 0
	for _, sig := range signals {
		portfolio := o.exec.GetPortfolio()
		sig.Size = o.sizer.ComputeSize(sig, portfolio)
		if sig.Size <= 0 {
			logger.Debugf("tick: %s %s sized to zero, skipping", sig.Side, sig.TokenID)
			continue
		}

		if reason := o.gate.Check(sig, portfolio, snap); reason != "" {
			logger.Warnf("tick: rejected %s %s: %s", sig.Side, sig.TokenID, reason)
			metrics.RiskRejectionsTotal.WithLabelValues(metrics.RejectionLimit(reason)).Inc()
			if err := o.store.LogSignal(ctx, sig, model.SignalStatusRejected, reason); err != nil {
				logger.Debugf("tick: failed to log rejection: %v", err)
			}
			continue
		}

		placed, err := o.exec.PlaceOrder(ctx, sig)
		if err != nil {
			logger.Errorf("tick: order for %s failed: %v", sig.TokenID, err)
			continue
		}
		if placed == nil {
			continue
		}

		executed++
		snap.Advance(sig.Side, placed.Size, o.exec.HoldsOpenOrders())
		metrics.TradesTotal.WithLabelValues(string(sig.Side)).Inc()
		if err := o.store.LogSignal(ctx, sig, model.SignalStatusExecuted, ""); err != nil {
			logger.Debugf("tick: failed to log execution: %v", err)
		}
		o.alerter.Sendf("trade: %s %s size=%.2f @ %.4f (%s)",
			sig.Side, sig.TokenID, placed.Size, placed.Price, sig.Strategy)

		if o.cfg.ConditionalOrders.Enabled {
			if _, err := o.conditionals.AutoCreate(ctx, sig, placed); err != nil {
				logger.Errorf("tick: failed to create protective orders for %s: %v", sig.TokenID, err)
			}
		}
	}
	return executed
}

func (o *Orchestrator) buildRiskSnapshot(ctx context.Context) (*risk.Snapshot, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	buys, sells, err := o.store.DailyTradeTotals(ctx, midnight)
	if err != nil {
		return nil, err
	}
	// 上一轮留下的未结订单也占 max_open_orders 额度
	return risk.NewSnapshot(buys, sells, len(o.exec.OpenOrders(ctx))), nil
}

// refreshPositionPrices 把每个持仓 token 的最新 bid 写回执行器,
// 价格拉不到的持仓保持旧价,由退出规则自行跳过。
func (o *Orchestrator) refreshPositionPrices(ctx context.Context) {
	marker, ok := o.exec.(interface{ MarkPrice(string, float64) })
	if !ok {
		return
	}
	for token := range o.exec.GetPortfolio().Positions {
		spread, err := o.provider.GetPrice(ctx, token)
		if err != nil {
			logger.Warnf("tick: no fresh price for held token %s: %v", token, err)
			continue
		}
		marker.MarkPrice(token, spread.Bid)
	}
}

func (o *Orchestrator) maybeSnapshot(ctx context.Context, force bool) {
	interval := time.Duration(o.cfg.SnapshotInterval) * time.Second
	if !force && time.Since(o.lastSnapshot) < interval {
		return
	}
	if err := o.store.SaveSnapshot(ctx, o.exec.GetPortfolio()); err != nil {
		logger.Debugf("tick: snapshot write failed: %v", err)
		return
	}
	o.lastSnapshot = time.Now()
}

func (o *Orchestrator) publishPortfolioMetrics() {
	portfolio := o.exec.GetPortfolio()
	metrics.PortfolioBalance.Set(portfolio.Balance)
	metrics.PortfolioTotalValue.Set(portfolio.TotalValue())
	metrics.OpenPositions.Set(float64(len(portfolio.Positions)))
}

// LastSignals 返回最近一轮聚合信号的副本。
func (o *Orchestrator) LastSignals() SignalCache {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := SignalCache{Timestamp: o.lastSignals.Timestamp}
	out.Signals = append(out.Signals, o.lastSignals.Signals...)
	return out
}

// Portfolio 返回执行器当前组合。
func (o *Orchestrator) Portfolio() types.Portfolio {
	return o.exec.GetPortfolio()
}

func filterFocus(markets []types.Market, focus []string) []types.Market {
	if len(focus) == 0 {
		return markets
	}
	want := make(map[string]bool, len(focus))
	for _, f := range focus {
		want[f] = true
	}
	var out []types.Market
	for _, m := range markets {
		if want[m.ID] || want[m.Slug] {
			out = append(out, m)
		}
	}
	return out
}
