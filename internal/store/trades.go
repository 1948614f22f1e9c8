package store

import (
	"context"
	"errors"
	"time"

	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

// LogTrade 追加一条成交记录。
func (s *Store) LogTrade(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	if trade.Timestamp == 0 {
		trade.Timestamp = time.Now().Unix()
	}
	return s.db.WithContext(ctx).Create(trade).Error
}

// ListRecentTrades 按时间倒序返回最近的成交。
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if limit <= 0 {
		limit = 100
	}
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// DailyTradeTotals 汇总 since 之后的买入与卖出金额,供风控计算当日净亏损。
func (s *Store) DailyTradeTotals(ctx context.Context, since time.Time) (buys, sells float64, err error) {
	type row struct {
		Side  string
		Total float64
	}
	var rows []row
	err = s.db.WithContext(ctx).
		Model(&model.TradeModel{}).
		Select("side, COALESCE(SUM(size), 0) AS total").
		Where("timestamp >= ?", since.Unix()).
		Group("side").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch types.Side(r.Side) {
		case types.SideBuy:
			buys = r.Total
		case types.SideSell:
			sells = r.Total
		}
	}
	return buys, sells, nil
}
