package exitmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyagent/internal/config"
	"polyagent/internal/types"
)

func manager() *Manager {
	return New(config.ExitManagerConfig{
		Enabled:         true,
		ProfitTargetPct: 0.20,
		StopLossPct:     0.15,
		SignalReversal:  true,
		MaxHoldHours:    72,
	})
}

func portfolioWith(token string, pos types.Position) types.Portfolio {
	return types.Portfolio{Balance: 1000, Positions: map[string]types.Position{token: pos}}
}

func position(entry, current float64, openedAgo time.Duration, strategy string) types.Position {
	return types.Position{
		MarketID:      "m1",
		Shares:        100,
		AvgPrice:      entry,
		CurrentPrice:  current,
		OpenedAt:      time.Now().Add(-openedAgo),
		EntryStrategy: strategy,
	}
}

func TestProfitTargetExit(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.50, time.Hour, "signal_trader")), time.Now())
	require.Len(t, signals, 1)

	got := signals[0]
	assert.Equal(t, "exit_manager", got.Strategy)
	assert.Equal(t, types.SideSell, got.Side)
	assert.Equal(t, 1.0, got.Confidence)
	assert.InDelta(t, 50.0, got.Size, 1e-9) // 100 股 * 0.50
	assert.Contains(t, got.Reason, "profit_target: +25.0%")
}

func TestStopLossExit(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.30, time.Hour, "unknown")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "stop_loss: -25.0%")
}

func TestProfitTargetBeatsStaleness(t *testing.T) {
	// 两个条件同时命中时取优先级高的
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.50, 100*time.Hour, "unknown")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "profit_target")
}

func TestSignalTraderReversalAtMidpoint(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.44, 0.50, time.Hour, "signal_trader")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "crossed above midpoint")
}

func TestArbitrageurReversalOnConvergence(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.405, time.Hour, "arbitrageur")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "arb deviation closed")
}

func TestUnknownStrategyNeverReverses(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.401, time.Hour, "unknown")), time.Now())
	assert.Empty(t, signals)
}

func TestReversalDisabledByConfig(t *testing.T) {
	m := New(config.ExitManagerConfig{
		Enabled: true, ProfitTargetPct: 0.20, StopLossPct: 0.15,
		SignalReversal: false, MaxHoldHours: 72,
	})
	signals := m.Evaluate(portfolioWith("t1", position(0.44, 0.50, time.Hour, "signal_trader")), time.Now())
	assert.Empty(t, signals)
}

func TestStaleExit(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.42, 80*time.Hour, "unknown")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "stale: held 80.0h > max 72h")
}

func TestStaleExitFractionalHours(t *testing.T) {
	m := New(config.ExitManagerConfig{
		Enabled: true, ProfitTargetPct: 0.20, StopLossPct: 0.15,
		SignalReversal: false, MaxHoldHours: 0.5,
	})

	// 25 分钟 < 30 分钟阈值,不算超时
	signals := m.Evaluate(portfolioWith("t1", position(0.40, 0.42, 25*time.Minute, "unknown")), time.Now())
	assert.Empty(t, signals)

	signals = m.Evaluate(portfolioWith("t1", position(0.40, 0.42, 40*time.Minute, "unknown")), time.Now())
	require.Len(t, signals, 1)
	assert.Contains(t, signals[0].Reason, "stale: held 0.7h > max 0.5h")
}

func TestHealthyPositionHolds(t *testing.T) {
	signals := manager().Evaluate(portfolioWith("t1", position(0.40, 0.42, time.Hour, "unknown")), time.Now())
	assert.Empty(t, signals)
}

func TestSkipsCorruptPositions(t *testing.T) {
	portfolio := types.Portfolio{Balance: 1000, Positions: map[string]types.Position{
		"bad-avg":    position(0, 0.50, time.Hour, "unknown"),
		"bad-shares": {MarketID: "m1", Shares: 0, AvgPrice: 0.40, CurrentPrice: 0.50},
		"no-price":   position(0.40, 0, time.Hour, "unknown"),
	}}
	assert.Empty(t, manager().Evaluate(portfolio, time.Now()))
}

func TestEvaluateOutputSortedByToken(t *testing.T) {
	portfolio := types.Portfolio{Balance: 1000, Positions: map[string]types.Position{
		"zz": position(0.40, 0.50, time.Hour, "unknown"),
		"aa": position(0.40, 0.30, time.Hour, "unknown"),
	}}
	signals := manager().Evaluate(portfolio, time.Now())
	require.Len(t, signals, 2)
	assert.Equal(t, "aa", signals[0].TokenID)
	assert.Equal(t, "zz", signals[1].TokenID)
}
