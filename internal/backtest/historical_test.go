package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyHeader = "timestamp,market_id,question,yes_price,volume,token_id\n"

func writeHistory(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(historyHeader+rows), 0o644))
	return path
}

func TestHistoricalProviderParsesAndSorts(t *testing.T) {
	// 故意乱序写入,读出来按时间升序
	path := writeHistory(t,
		"2025-06-01T02:00:00Z,m1,q,0.55,1000,tok1\n"+
			"2025-06-01T00:00:00Z,m1,q,0.50,1000,tok1\n"+
			"2025-06-01T01:00:00Z,m1,q,0.52,1000,tok1\n")
	h, err := NewHistoricalProvider(path, 0.02)
	require.NoError(t, err)

	timestamps := h.Timestamps()
	require.Len(t, timestamps, 3)
	assert.True(t, timestamps[0].Before(timestamps[1]))
	assert.True(t, timestamps[1].Before(timestamps[2]))
}

func TestHistoricalProviderRejectsBadInput(t *testing.T) {
	_, err := NewHistoricalProvider(filepath.Join(t.TempDir(), "missing.csv"), 0.02)
	assert.Error(t, err)

	empty := writeHistory(t, "")
	_, err = NewHistoricalProvider(empty, 0.02)
	assert.Error(t, err)

	noToken := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(noToken, []byte("timestamp,market_id,yes_price\n1,m1,0.5\n"), 0o644))
	_, err = NewHistoricalProvider(noToken, 0.02)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_id")
}

func TestCursorHidesFuture(t *testing.T) {
	path := writeHistory(t,
		"2025-06-01T00:00:00Z,m1,q,0.50,1000,tok1\n"+
			"2025-06-01T01:00:00Z,m1,q,0.60,1000,tok1\n")
	h, err := NewHistoricalProvider(path, 0.02)
	require.NoError(t, err)
	ctx := context.Background()

	// 游标未推进前什么都看不到
	markets, err := h.GetActiveMarkets(ctx, "", 50)
	require.NoError(t, err)
	assert.Empty(t, markets)
	_, err = h.GetPrice(ctx, "tok1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price data for token tok1")

	h.Advance(time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC))
	spread, err := h.GetPrice(ctx, "tok1")
	require.NoError(t, err)
	assert.InDelta(t, 0.49, spread.Bid, 1e-9) // 0.50 - 0.02/2
	assert.InDelta(t, 0.51, spread.Ask, 1e-9)

	history, err := h.GetPriceHistory(ctx, "tok1", "1w", 60)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	h.Advance(time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC))
	spread, err = h.GetPrice(ctx, "tok1")
	require.NoError(t, err)
	assert.InDelta(t, 0.59, spread.Bid, 1e-9)
}

func TestSyntheticSpreadClamped(t *testing.T) {
	path := writeHistory(t, "2025-06-01T00:00:00Z,m1,q,0.005,1000,tok1\n")
	h, err := NewHistoricalProvider(path, 0.02)
	require.NoError(t, err)
	h.Advance(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	spread, err := h.GetPrice(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Equal(t, 0.001, spread.Bid) // 不会出现 0 或负的 bid
}

func TestMarketsAtCursorDedupAndShape(t *testing.T) {
	path := writeHistory(t,
		"2025-06-01T00:00:00Z,m1,q1,0.30,1000,tok1\n"+
			"2025-06-01T00:00:00Z,m2,q2,0.70,2000,tok2\n"+
			"2025-06-01T00:00:00Z,m1,q1,0.32,1000,tok1\n")
	h, err := NewHistoricalProvider(path, 0.02)
	require.NoError(t, err)
	h.Advance(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	markets, err := h.GetActiveMarkets(context.Background(), "", 50)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	byID := map[string]int{}
	for i, m := range markets {
		byID[m.ID] = i
	}
	m1 := markets[byID["m1"]]
	assert.Equal(t, []string{"Yes", "No"}, m1.Outcomes)
	assert.Equal(t, []float64{0.32, 0.68}, m1.OutcomePrices) // 同一时刻取最后一行
	assert.Equal(t, []string{"tok1"}, m1.ClobTokenIDs)
	assert.Equal(t, 1000.0, m1.Volume)
	assert.Zero(t, m1.Volume24h) // 历史数据没有 24h 量
	assert.True(t, m1.Active)
}

func TestMarketsLimit(t *testing.T) {
	var rows string
	for i := 0; i < 5; i++ {
		rows += fmt.Sprintf("2025-06-01T00:00:00Z,m%d,q,0.50,1000,tok%d\n", i, i)
	}
	h, err := NewHistoricalProvider(writeHistory(t, rows), 0.02)
	require.NoError(t, err)
	h.Advance(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	markets, err := h.GetActiveMarkets(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Len(t, markets, 3)
}

func TestUnixTimestampsAccepted(t *testing.T) {
	path := writeHistory(t, "1748736000,m1,q,0.50,1000,tok1\n")
	h, err := NewHistoricalProvider(path, 0.02)
	require.NoError(t, err)
	assert.Equal(t, int64(1748736000), h.Timestamps()[0].Unix())
}
