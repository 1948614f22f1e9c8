package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestTradeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogTrade(ctx, &model.TradeModel{
		MarketID: "m1", TokenID: "t1", Side: "buy",
		Price: 0.45, Size: 50, Shares: 111.11, Strategy: "signal_trader",
	}))
	require.NoError(t, s.LogTrade(ctx, &model.TradeModel{
		MarketID: "m1", TokenID: "t1", Side: "sell",
		Price: 0.55, Size: 20, Shares: 36.36, Strategy: "exit_manager",
	}))

	trades, err := s.ListRecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "sell", trades[0].Side) // 最近的在前

	buys, sells, err := s.DailyTradeTotals(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 50.0, buys)
	assert.Equal(t, 20.0, sells)
}

func TestDailyTotalsIgnoreOldTrades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogTrade(ctx, &model.TradeModel{
		Timestamp: time.Now().Add(-48 * time.Hour).Unix(),
		TokenID:   "t1", Side: "buy", Size: 99,
	}))

	buys, sells, err := s.DailyTradeTotals(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0.0, buys)
	assert.Equal(t, 0.0, sells)
}

func TestSignalLogStatuses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := types.Signal{Strategy: "arbitrageur", MarketID: "m1", TokenID: "t1", Side: types.SideBuy, Confidence: 0.8, Size: 25}

	require.NoError(t, s.LogSignal(ctx, sig, model.SignalStatusGenerated, ""))
	require.NoError(t, s.LogSignal(ctx, sig, model.SignalStatusRejected, "daily_loss 60.00 reached max_daily_loss 50.00"))

	rejected, err := s.ListRecentSignals(ctx, model.SignalStatusRejected, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].RejectReason, "max_daily_loss")

	all, err := s.ListRecentSignals(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSnapshotRestore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.RestorePortfolio(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	portfolio := types.Portfolio{
		Balance: 800,
		Positions: map[string]types.Position{
			"t1": {MarketID: "m1", Shares: 100, AvgPrice: 0.40, CurrentPrice: 0.45},
		},
	}
	require.NoError(t, s.SaveSnapshot(ctx, portfolio))

	restored, ok, err := s.RestorePortfolio(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 800.0, restored.Balance)
	require.Contains(t, restored.Positions, "t1")
	pos := restored.Positions["t1"]
	assert.Equal(t, 100.0, pos.Shares)
	assert.Equal(t, 0.40, pos.AvgPrice)
	// 序列化前没填的字段恢复时补占位值
	assert.False(t, pos.OpenedAt.IsZero())
	assert.Equal(t, "unknown", pos.EntryStrategy)
}

func TestConditionalOrderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	watermark := 0.60

	order := &model.ConditionalOrderModel{
		ID: "co-1", TokenID: "t1", MarketID: "m1",
		OrderType: "trailing_stop", Status: "active",
		TriggerPrice: 0.54, Size: 100, ParentStrategy: "signal_trader",
		HighWatermark: &watermark, CreatedAtUnix: time.Now().Unix(),
	}
	require.NoError(t, s.SaveConditionalOrder(ctx, order))

	active, err := s.ListActiveConditionalOrders(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].HighWatermark)
	assert.Equal(t, 0.60, *active[0].HighWatermark)
	assert.Nil(t, active[0].TrailPercent)

	// 同 ID 重写应更新而不是报错
	newWatermark := 0.70
	order.HighWatermark = &newWatermark
	require.NoError(t, s.SaveConditionalOrder(ctx, order))

	triggered := time.Now().Unix()
	order.Status = "triggered"
	order.TriggeredAtUnix = &triggered
	require.NoError(t, s.SaveConditionalOrder(ctx, order))

	active, err = s.ListActiveConditionalOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListConditionalOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "triggered", all[0].Status)
	assert.Equal(t, 0.70, *all[0].HighWatermark)
}

func TestConfigAudit(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.LogConfigChange(context.Background(),
		[]string{"risk.max_daily_loss", "strategies.arbitrageur.enabled"}, true, ""))
}
