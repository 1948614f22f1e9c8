package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyagent/internal/config"
	"polyagent/internal/executor"
	"polyagent/internal/store"
	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

type stubProvider struct {
	markets []types.Market
	bids    map[string]float64
}

func (s *stubProvider) GetActiveMarkets(context.Context, string, int) ([]types.Market, error) {
	return s.markets, nil
}

func (s *stubProvider) GetOrderBook(context.Context, string) (types.OrderBook, error) {
	return types.OrderBook{}, nil
}

func (s *stubProvider) GetPrice(_ context.Context, tokenID string) (types.Spread, error) {
	bid, ok := s.bids[tokenID]
	if !ok {
		return types.Spread{}, errors.New("no price data for token " + tokenID)
	}
	return types.Spread{Bid: bid, Ask: bid + 0.02, Spread: 0.02}, nil
}

func (s *stubProvider) GetPriceHistory(context.Context, string, string, int) ([]types.PricePoint, error) {
	return nil, nil
}

func testConfig(mode string) *config.Config {
	cfg := config.LoadDefaults()
	cfg.Mode = mode
	cfg.Strategies.SignalTrader.Enabled = true
	cfg.ConditionalOrders.Enabled = true
	cfg.ExitManager.Enabled = true
	cfg.Alerts.Console = false
	return cfg
}

// yes 价格 0.20 的高量市场:signal_trader 买入信号,置信度 0.6
func cheapMarket(id string) types.Market {
	return types.Market{
		ID:            id,
		Question:      "will it happen",
		Active:        true,
		Outcomes:      []string{"Yes", "No"},
		OutcomePrices: []float64{0.20, 0.80},
		ClobTokenIDs:  []string{id + "-yes", id + "-no"},
		Volume24h:     8000,
	}
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, provider *stubProvider) (*Orchestrator, *store.Store, *executor.PaperTrader) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	trader := executor.NewPaperTrader(cfg.StartingBalance, st)
	return New(cfg, provider, trader, st), st, trader
}

func TestTickExecutesBuyAndCreatesProtectiveOrders(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1")}}
	o, st, trader := newTestOrchestrator(t, testConfig(config.ModePaper), provider)
	ctx := context.Background()

	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarketsFetched)
	assert.Equal(t, 1, summary.SignalsGenerated)
	assert.Equal(t, 1, summary.TradesExecuted)

	portfolio := trader.GetPortfolio()
	require.Contains(t, portfolio.Positions, "m1-yes")

	// 买入后自动挂上止损止盈
	active, err := st.ListActiveConditionalOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// 信号留痕:generated + executed
	executed, err := st.ListRecentSignals(ctx, model.SignalStatusExecuted, 10)
	require.NoError(t, err)
	assert.Len(t, executed, 1)

	// 有成交的 tick 强制写快照
	snap, err := st.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestMonitorModeNeverTrades(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1")}}
	o, st, trader := newTestOrchestrator(t, testConfig(config.ModeMonitor), provider)
	ctx := context.Background()

	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SignalsGenerated)
	assert.Zero(t, summary.TradesExecuted)
	assert.Empty(t, trader.GetPortfolio().Positions)

	// 信号仍然留痕
	generated, err := st.ListRecentSignals(ctx, model.SignalStatusGenerated, 10)
	require.NoError(t, err)
	assert.Len(t, generated, 1)
}

func TestTickRejectsOversizedSignal(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1")}}
	cfg := testConfig(config.ModePaper)
	cfg.Risk.MaxPositionSize = 10 // signal_trader 的 size 是 80 (1% * 8000)
	o, st, trader := newTestOrchestrator(t, cfg, provider)
	ctx := context.Background()

	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TradesExecuted)
	assert.Empty(t, trader.GetPortfolio().Positions)

	rejected, err := st.ListRecentSignals(ctx, model.SignalStatusRejected, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].RejectReason, "max_position_size")
}

func TestTickSecondBuyBlockedByExistingPosition(t *testing.T) {
	provider := &stubProvider{
		markets: []types.Market{cheapMarket("m1")},
		bids:    map[string]float64{"m1-yes": 0.20},
	}
	o, st, _ := newTestOrchestrator(t, testConfig(config.ModePaper), provider)
	ctx := context.Background()

	_, err := o.Tick(ctx)
	require.NoError(t, err)

	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TradesExecuted)

	rejected, err := st.ListRecentSignals(ctx, model.SignalStatusRejected, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].RejectReason, "already holding")
}

func TestTickConditionalTakeProfitFires(t *testing.T) {
	provider := &stubProvider{
		markets: []types.Market{cheapMarket("m1")},
		bids:    map[string]float64{"m1-yes": 0.30}, // 入场 0.20,止盈线 0.26
	}
	o, st, trader := newTestOrchestrator(t, testConfig(config.ModePaper), provider)
	ctx := context.Background()

	_, err := o.Tick(ctx)
	require.NoError(t, err)
	require.Contains(t, trader.GetPortfolio().Positions, "m1-yes")

	// market 下架,第二轮只剩条件单巡检
	provider.markets = nil
	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ConditionalTriggered)
	assert.NotContains(t, trader.GetPortfolio().Positions, "m1-yes")

	// 触发的止盈连带作废同 token 的止损
	active, err := st.ListActiveConditionalOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTickExitManagerSellsPosition(t *testing.T) {
	provider := &stubProvider{
		markets: []types.Market{cheapMarket("m1")},
		bids:    map[string]float64{"m1-yes": 0.30}, // 入场 0.20,+50% 过了止盈目标
	}
	cfg := testConfig(config.ModePaper)
	cfg.ConditionalOrders.Enabled = false
	o, st, trader := newTestOrchestrator(t, cfg, provider)
	ctx := context.Background()

	_, err := o.Tick(ctx)
	require.NoError(t, err)
	require.Contains(t, trader.GetPortfolio().Positions, "m1-yes")

	provider.markets = nil
	summary, err := o.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExitsExecuted)
	assert.NotContains(t, trader.GetPortfolio().Positions, "m1-yes")

	executed, err := st.ListRecentSignals(ctx, model.SignalStatusExecuted, 10)
	require.NoError(t, err)
	require.NotEmpty(t, executed)
	assert.Equal(t, "exit_manager", executed[0].Strategy)
}

func TestFocusFilter(t *testing.T) {
	markets := []types.Market{cheapMarket("m1"), cheapMarket("m2"), cheapMarket("m3")}
	assert.Len(t, filterFocus(markets, nil), 3)

	focused := filterFocus(markets, []string{"m2"})
	require.Len(t, focused, 1)
	assert.Equal(t, "m2", focused[0].ID)
}

func TestReloadRejectsModeChange(t *testing.T) {
	provider := &stubProvider{}
	o, _, _ := newTestOrchestrator(t, testConfig(config.ModePaper), provider)

	next := testConfig(config.ModeLive)
	err := o.ReloadConfig(context.Background(), next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires restart")
	assert.Equal(t, config.ModePaper, o.cfg.Mode)
}

func TestReloadAppliesParameterChanges(t *testing.T) {
	provider := &stubProvider{}
	o, _, _ := newTestOrchestrator(t, testConfig(config.ModePaper), provider)
	before := o.exec

	next := testConfig(config.ModePaper)
	next.Risk.MaxDailyLoss = 75
	next.Strategies.Arbitrageur.Enabled = true

	require.NoError(t, o.ReloadConfig(context.Background(), next))
	assert.Equal(t, 75.0, o.cfg.Risk.MaxDailyLoss)
	assert.Len(t, o.strategies, 2)
	assert.Same(t, before, o.exec) // 执行器跨重载保留
}

func TestLastSignalsCache(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1")}}
	o, _, _ := newTestOrchestrator(t, testConfig(config.ModeMonitor), provider)

	assert.True(t, o.LastSignals().Timestamp.IsZero())

	_, err := o.Tick(context.Background())
	require.NoError(t, err)

	cache := o.LastSignals()
	assert.False(t, cache.Timestamp.IsZero())
	require.Len(t, cache.Signals, 1)
	assert.Equal(t, "m1-yes", cache.Signals[0].TokenID)
}

// restingExecutor 模拟会留下未结订单的执行器(如实盘限价单)。
type restingExecutor struct {
	open   []types.Order
	placed int
}

func (r *restingExecutor) PlaceOrder(_ context.Context, sig types.Signal) (*types.Order, error) {
	order := types.Order{
		MarketID: sig.MarketID, TokenID: sig.TokenID, Side: sig.Side,
		Price: sig.TargetPrice, Size: sig.Size, Shares: sig.Size / sig.TargetPrice,
	}
	r.open = append(r.open, order)
	r.placed++
	return &order, nil
}

func (r *restingExecutor) GetPortfolio() types.Portfolio {
	return types.Portfolio{Balance: 1000, Positions: map[string]types.Position{}}
}

func (r *restingExecutor) CancelOrder(context.Context, string) bool { return false }

func (r *restingExecutor) OpenOrders(context.Context) []types.Order { return r.open }

func (r *restingExecutor) HoldsOpenOrders() bool { return true }

func TestRiskSnapshotSeededWithExistingOpenOrders(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1")}}
	cfg := testConfig(config.ModePaper)
	cfg.ConditionalOrders.Enabled = false
	cfg.ExitManager.Enabled = false
	cfg.Risk.MaxOpenOrders = 2

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// 上一轮已有两张未结订单,额度在新信号前就满了
	exec := &restingExecutor{open: []types.Order{
		{TokenID: "old-1", Side: types.SideBuy, Price: 0.40, Size: 20},
		{TokenID: "old-2", Side: types.SideBuy, Price: 0.40, Size: 20},
	}}
	o := New(cfg, provider, exec, st)

	summary, err := o.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SignalsGenerated)
	assert.Equal(t, 0, summary.TradesExecuted)
	assert.Equal(t, 0, exec.placed)

	rejected, err := st.ListRecentSignals(context.Background(), model.SignalStatusRejected, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].RejectReason, "max_open_orders")
}

func TestRiskSnapshotAdvancesOpenOrdersWithinTick(t *testing.T) {
	provider := &stubProvider{markets: []types.Market{cheapMarket("m1"), cheapMarket("m2")}}
	cfg := testConfig(config.ModePaper)
	cfg.ConditionalOrders.Enabled = false
	cfg.ExitManager.Enabled = false
	cfg.Risk.MaxOpenOrders = 2

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	exec := &restingExecutor{open: []types.Order{
		{TokenID: "old-1", Side: types.SideBuy, Price: 0.40, Size: 20},
	}}
	o := New(cfg, provider, exec, st)

	// 第一单把额度用满,第二单同轮内被拒
	summary, err := o.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SignalsGenerated)
	assert.Equal(t, 1, summary.TradesExecuted)
	assert.Equal(t, 1, exec.placed)
}
