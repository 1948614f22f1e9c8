package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

// SaveSnapshot 把当前组合状态写成一条快照。
func (s *Store) SaveSnapshot(ctx context.Context, portfolio types.Portfolio) error {
	positions, err := json.Marshal(portfolio.Positions)
	if err != nil {
		return err
	}
	snap := model.SnapshotModel{
		Timestamp:  time.Now().Unix(),
		Balance:    portfolio.Balance,
		TotalValue: portfolio.TotalValue(),
		Positions:  datatypes.JSON(positions),
	}
	return s.db.WithContext(ctx).Create(&snap).Error
}

// LatestSnapshot 返回最近一条快照,库是空的返回 (nil, nil)。
func (s *Store) LatestSnapshot(ctx context.Context) (*model.SnapshotModel, error) {
	var snap model.SnapshotModel
	err := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// RestorePortfolio 从最近快照重建组合,没有快照时 ok=false。
// 快照里缺失的字段(开仓时间、来源策略)用占位值补齐。
func (s *Store) RestorePortfolio(ctx context.Context) (types.Portfolio, bool, error) {
	snap, err := s.LatestSnapshot(ctx)
	if err != nil || snap == nil {
		return types.Portfolio{}, false, err
	}

	positions := make(map[string]types.Position)
	if len(snap.Positions) > 0 {
		if err := json.Unmarshal(snap.Positions, &positions); err != nil {
			return types.Portfolio{}, false, err
		}
	}
	now := time.Now()
	for token, pos := range positions {
		if pos.OpenedAt.IsZero() {
			pos.OpenedAt = now
		}
		if pos.EntryStrategy == "" {
			pos.EntryStrategy = "unknown"
		}
		positions[token] = pos
	}

	return types.Portfolio{Balance: snap.Balance, Positions: positions}, true, nil
}
