package types

import "time"

// Side 表示交易方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Signal 策略产出的交易信号,不可变值对象
// Size 始终以计价货币(USDC)计,执行层按 Size/TargetPrice 换算份额
type Signal struct {
	Strategy    string
	MarketID    string
	TokenID     string
	Side        Side
	Confidence  float64 // [0,1]
	TargetPrice float64 // (0,1)
	Size        float64
	Reason      string
	StopLoss    *float64 // 可选,覆盖默认止损触发价
	TakeProfit  *float64 // 可选,覆盖默认止盈触发价
}

// Market 单个预测市场,字段来自 polymarket CLI 的 JSON 输出
type Market struct {
	ID             string
	Question       string
	Outcomes       []string
	OutcomePrices  []float64
	Volume         float64
	Liquidity      float64
	Active         bool
	Closed         bool
	ConditionID    string
	Slug           string
	EndDate        string
	Description    string
	ClobTokenIDs   []string
	Volume24h      float64
	GroupItemTitle string
}

// Spread 某个 token 当前的买卖价
type Spread struct {
	Bid    float64
	Ask    float64
	Spread float64
}

// PricePoint 带时间戳的历史价格观测
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

type OrderBookLevel struct {
	Price float64
	Size  float64
}

type OrderBook struct {
	Asks []OrderBookLevel
	Bids []OrderBookLevel
}

// BestAsk 最低卖价,无挂单时返回 0
func (ob OrderBook) BestAsk() float64 {
	best := 0.0
	for i, lvl := range ob.Asks {
		if i == 0 || lvl.Price < best {
			best = lvl.Price
		}
	}
	return best
}

// BestBid 最高买价,无挂单时返回 0
func (ob OrderBook) BestBid() float64 {
	best := 0.0
	for _, lvl := range ob.Bids {
		if lvl.Price > best {
			best = lvl.Price
		}
	}
	return best
}

// Spread 买卖价差,空侧按 0 计
func (ob OrderBook) Spread() float64 {
	return ob.BestAsk() - ob.BestBid()
}

// Position 某个 token 的持仓,仅由执行层写入
type Position struct {
	MarketID      string    `json:"market_id"`
	Shares        float64   `json:"shares"`
	AvgPrice      float64   `json:"avg_price"`
	CurrentPrice  float64   `json:"current_price"`
	OpenedAt      time.Time `json:"opened_at"`
	EntryStrategy string    `json:"entry_strategy"`
}

// Portfolio 当前组合状态,决策层只读
type Portfolio struct {
	Balance   float64
	Positions map[string]Position // token id -> position
}

// TotalValue 现金加上各持仓按最新价(缺失则按入场均价)的估值
func (p Portfolio) TotalValue() float64 {
	total := p.Balance
	for _, pos := range p.Positions {
		price := pos.CurrentPrice
		if price == 0 {
			price = pos.AvgPrice
		}
		total += pos.Shares * price
	}
	return total
}

// Order 一笔已成交订单
type Order struct {
	MarketID string
	TokenID  string
	Side     Side
	Price    float64
	Size     float64
	Shares   float64
}
