package store

import (
	"context"
	"errors"

	"gorm.io/gorm/clause"

	"polyagent/internal/store/model"
)

// SaveConditionalOrder 写入或更新一张条件单,以 ID 为准幂等。
func (s *Store) SaveConditionalOrder(ctx context.Context, order *model.ConditionalOrderModel) error {
	if order == nil {
		return errors.New("conditional order cannot be nil")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(order).Error
}

// ListActiveConditionalOrders 返回全部待触发的条件单。
func (s *Store) ListActiveConditionalOrders(ctx context.Context) ([]model.ConditionalOrderModel, error) {
	var orders []model.ConditionalOrderModel
	if err := s.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("created_at ASC, id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListConditionalOrders 返回最近的条件单,含已触发和已取消的。
func (s *Store) ListConditionalOrders(ctx context.Context, limit int) ([]model.ConditionalOrderModel, error) {
	var orders []model.ConditionalOrderModel
	if limit <= 0 {
		limit = 100
	}
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
