package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"polyagent/internal/types"
)

// 合成盘口兜底价,历史数据没有深度,bid/ask 由中间价加减半个点差造出来
const (
	minSyntheticPrice = 0.001
	maxSyntheticPrice = 0.999
)

type historicalRow struct {
	ts       time.Time
	marketID string
	question string
	yesPrice float64
	volume   float64
	tokenID  string
}

// HistoricalProvider 把一份 CSV 历史数据包装成只能看到
// 游标之前数据的行情源,回测引擎逐个时间戳推进游标。
// CSV 列:timestamp,market_id,question,yes_price,volume,token_id。
type HistoricalProvider struct {
	rows          []historicalRow
	cursor        int // rows[0..cursor] 对回测可见,-1 表示还没有数据可见
	defaultSpread float64
}

func NewHistoricalProvider(csvPath string, defaultSpread float64) (*HistoricalProvider, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	rows, err := parseHistoryCSV(f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("history %s has no data rows", csvPath)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	return &HistoricalProvider{rows: rows, cursor: -1, defaultSpread: defaultSpread}, nil
}

func parseHistoryCSV(r io.Reader) ([]historicalRow, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"timestamp", "market_id", "yes_price", "token_id"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("history is missing column %q", required)
		}
	}

	var rows []historicalRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseTimestamp(record[col["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(record[col["yes_price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad yes_price: %w", line, err)
		}
		row := historicalRow{
			ts:       ts,
			marketID: record[col["market_id"]],
			yesPrice: price,
			tokenID:  record[col["token_id"]],
		}
		if i, ok := col["question"]; ok {
			row.question = record[i]
		}
		if i, ok := col["volume"]; ok {
			row.volume, _ = strconv.ParseFloat(record[i], 64)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// Timestamps 返回数据集中去重后的全部时间戳,升序。
func (h *HistoricalProvider) Timestamps() []time.Time {
	var out []time.Time
	for _, row := range h.rows {
		if len(out) == 0 || !row.ts.Equal(out[len(out)-1]) {
			out = append(out, row.ts)
		}
	}
	return out
}

// Advance 把游标推到 target,之后行情只反映 target 及更早的行。
func (h *HistoricalProvider) Advance(target time.Time) {
	for h.cursor+1 < len(h.rows) && !h.rows[h.cursor+1].ts.After(target) {
		h.cursor++
	}
}

// GetActiveMarkets 返回游标时刻的市场,按 market_id 去重(取该时刻最后一行)。
func (h *HistoricalProvider) GetActiveMarkets(_ context.Context, _ string, limit int) ([]types.Market, error) {
	if h.cursor < 0 {
		return nil, nil
	}
	current := h.rows[h.cursor].ts
	latest := make(map[string]historicalRow)
	var order []string
	for i := 0; i <= h.cursor; i++ {
		row := h.rows[i]
		if !row.ts.Equal(current) {
			continue
		}
		if _, seen := latest[row.marketID]; !seen {
			order = append(order, row.marketID)
		}
		latest[row.marketID] = row
	}

	var markets []types.Market
	for _, id := range order {
		if limit > 0 && len(markets) >= limit {
			break
		}
		row := latest[id]
		markets = append(markets, types.Market{
			ID:            row.marketID,
			Question:      row.question,
			Active:        true,
			Outcomes:      []string{"Yes", "No"},
			OutcomePrices: []float64{row.yesPrice, math.Round((1-row.yesPrice)*10000) / 10000},
			ClobTokenIDs:  []string{row.tokenID},
			Volume:        row.volume,
		})
	}
	return markets, nil
}

// lastPrice 游标之前该 token 的最新价。
func (h *HistoricalProvider) lastPrice(tokenID string) (float64, bool) {
	for i := h.cursor; i >= 0; i-- {
		if h.rows[i].tokenID == tokenID {
			return h.rows[i].yesPrice, true
		}
	}
	return 0, false
}

func (h *HistoricalProvider) syntheticSpread(price float64) types.Spread {
	half := h.defaultSpread / 2
	bid := math.Max(price-half, minSyntheticPrice)
	ask := math.Min(price+half, maxSyntheticPrice)
	return types.Spread{Bid: bid, Ask: ask, Spread: ask - bid}
}

func (h *HistoricalProvider) GetOrderBook(_ context.Context, tokenID string) (types.OrderBook, error) {
	price, ok := h.lastPrice(tokenID)
	if !ok {
		return types.OrderBook{}, fmt.Errorf("no price data for token %s", tokenID)
	}
	spread := h.syntheticSpread(price)
	return types.OrderBook{
		Bids: []types.OrderBookLevel{{Price: spread.Bid, Size: 1000}},
		Asks: []types.OrderBookLevel{{Price: spread.Ask, Size: 1000}},
	}, nil
}

func (h *HistoricalProvider) GetPrice(_ context.Context, tokenID string) (types.Spread, error) {
	price, ok := h.lastPrice(tokenID)
	if !ok {
		return types.Spread{}, fmt.Errorf("no price data for token %s", tokenID)
	}
	return h.syntheticSpread(price), nil
}

func (h *HistoricalProvider) GetPriceHistory(_ context.Context, tokenID, _ string, _ int) ([]types.PricePoint, error) {
	var points []types.PricePoint
	for i := 0; i <= h.cursor; i++ {
		if h.rows[i].tokenID == tokenID {
			points = append(points, types.PricePoint{Timestamp: h.rows[i].ts, Price: h.rows[i].yesPrice})
		}
	}
	if points == nil {
		return nil, fmt.Errorf("no price data for token %s", tokenID)
	}
	return points, nil
}
