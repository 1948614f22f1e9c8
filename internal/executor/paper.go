package executor

import (
	"context"
	"sync"
	"time"

	"polyagent/internal/logger"
	"polyagent/internal/store"
	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

// PaperTrader 用真实行情做模拟成交:订单按信号目标价全额即时成交,
// 不模拟滑点和深度。资金与持仓只存在于内存,store 非空时成交同步落库。
type PaperTrader struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]types.Position
	trades    []TradeRecord
	store     *store.Store
}

// TradeRecord 是一笔模拟成交的内存留痕,回测指标直接从这里算。
type TradeRecord struct {
	Timestamp time.Time
	MarketID  string
	TokenID   string
	Side      types.Side
	Price     float64
	Size      float64
	Shares    float64
	Strategy  string
	Reason    string
}

func NewPaperTrader(startingBalance float64, st *store.Store) *PaperTrader {
	return &PaperTrader{
		balance:   startingBalance,
		positions: make(map[string]types.Position),
		store:     st,
	}
}

// 纸面订单即时成交,没有未结状态。
func (p *PaperTrader) HoldsOpenOrders() bool { return false }

func (p *PaperTrader) CancelOrder(context.Context, string) bool { return false }

func (p *PaperTrader) OpenOrders(context.Context) []types.Order { return nil }

func (p *PaperTrader) PlaceOrder(ctx context.Context, sig types.Signal) (*types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sig.TargetPrice <= 0 {
		logger.Warnf("paper: %s %s has no usable price, skipping", sig.Side, sig.TokenID)
		return nil, nil
	}
	switch sig.Side {
	case types.SideBuy:
		return p.buy(ctx, sig)
	case types.SideSell:
		return p.sell(ctx, sig)
	}
	return nil, nil
}

func (p *PaperTrader) buy(ctx context.Context, sig types.Signal) (*types.Order, error) {
	cost := sig.Size
	if cost > p.balance {
		logger.Warnf("paper: insufficient balance %.2f for buy of %.2f (%s)", p.balance, cost, sig.TokenID)
		return nil, nil
	}
	shares := cost / sig.TargetPrice
	now := time.Now()

	if pos, ok := p.positions[sig.TokenID]; ok && pos.Shares > 0 {
		// 加仓:成本加权摊平均价
		newShares := pos.Shares + shares
		pos.AvgPrice = (pos.Shares*pos.AvgPrice + cost) / newShares
		pos.Shares = newShares
		pos.CurrentPrice = sig.TargetPrice
		p.positions[sig.TokenID] = pos
	} else {
		p.positions[sig.TokenID] = types.Position{
			MarketID:      sig.MarketID,
			Shares:        shares,
			AvgPrice:      sig.TargetPrice,
			CurrentPrice:  sig.TargetPrice,
			OpenedAt:      now,
			EntryStrategy: sig.Strategy,
		}
	}
	p.balance -= cost

	p.recordTrade(ctx, TradeRecord{
		Timestamp: now,
		MarketID:  sig.MarketID,
		TokenID:   sig.TokenID,
		Side:      types.SideBuy,
		Price:     sig.TargetPrice,
		Size:      cost,
		Shares:    shares,
		Strategy:  sig.Strategy,
		Reason:    sig.Reason,
	})
	logger.Infof("paper: BUY %.2f shares of %s @ %.4f (cost %.2f)", shares, sig.TokenID, sig.TargetPrice, cost)

	return &types.Order{
		MarketID: sig.MarketID,
		TokenID:  sig.TokenID,
		Side:     types.SideBuy,
		Price:    sig.TargetPrice,
		Size:     cost,
		Shares:   shares,
	}, nil
}

func (p *PaperTrader) sell(ctx context.Context, sig types.Signal) (*types.Order, error) {
	pos, ok := p.positions[sig.TokenID]
	if !ok || pos.Shares <= 0 {
		logger.Warnf("paper: no position in %s to sell", sig.TokenID)
		return nil, nil
	}
	sharesToSell := sig.Size / sig.TargetPrice
	if sharesToSell > pos.Shares {
		sharesToSell = pos.Shares
	}
	proceeds := sharesToSell * sig.TargetPrice
	now := time.Now()

	pos.Shares -= sharesToSell
	if pos.Shares <= 1e-9 {
		delete(p.positions, sig.TokenID)
	} else {
		pos.CurrentPrice = sig.TargetPrice
		p.positions[sig.TokenID] = pos
	}
	p.balance += proceeds

	p.recordTrade(ctx, TradeRecord{
		Timestamp: now,
		MarketID:  sig.MarketID,
		TokenID:   sig.TokenID,
		Side:      types.SideSell,
		Price:     sig.TargetPrice,
		Size:      proceeds,
		Shares:    sharesToSell,
		Strategy:  sig.Strategy,
		Reason:    sig.Reason,
	})
	logger.Infof("paper: SELL %.2f shares of %s @ %.4f (proceeds %.2f)", sharesToSell, sig.TokenID, sig.TargetPrice, proceeds)

	return &types.Order{
		MarketID: sig.MarketID,
		TokenID:  sig.TokenID,
		Side:     types.SideSell,
		Price:    sig.TargetPrice,
		Size:     proceeds,
		Shares:   sharesToSell,
	}, nil
}

func (p *PaperTrader) recordTrade(ctx context.Context, trade TradeRecord) {
	p.trades = append(p.trades, trade)
	if p.store == nil {
		return
	}
	err := p.store.LogTrade(ctx, &model.TradeModel{
		Timestamp: trade.Timestamp.Unix(),
		MarketID:  trade.MarketID,
		TokenID:   trade.TokenID,
		Side:      string(trade.Side),
		Price:     trade.Price,
		Size:      trade.Size,
		Shares:    trade.Shares,
		Strategy:  trade.Strategy,
		Reason:    trade.Reason,
	})
	if err != nil {
		logger.Errorf("paper: failed to persist trade: %v", err)
	}
}

// GetPortfolio 返回组合深拷贝,调用方可随意改动。
func (p *PaperTrader) GetPortfolio() types.Portfolio {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]types.Position, len(p.positions))
	for token, pos := range p.positions {
		positions[token] = pos
	}
	return types.Portfolio{Balance: p.balance, Positions: positions}
}

// Trades 返回全部成交记录的副本。
func (p *PaperTrader) Trades() []TradeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// MarkPrice 更新持仓的最新市价,不产生成交。
func (p *PaperTrader) MarkPrice(tokenID string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[tokenID]; ok {
		pos.CurrentPrice = price
		p.positions[tokenID] = pos
	}
}

// RecoverFromDB 从最近的组合快照恢复余额和持仓。
// 没有快照时保持初始状态,不算错误。
func (p *PaperTrader) RecoverFromDB(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	portfolio, ok, err := p.store.RestorePortfolio(ctx)
	if err != nil {
		return err
	}
	if !ok {
		logger.Infof("paper: no snapshot found, starting fresh with balance %.2f", p.balance)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = portfolio.Balance
	p.positions = portfolio.Positions
	logger.Infof("paper: recovered balance %.2f and %d positions from snapshot", p.balance, len(p.positions))
	return nil
}
