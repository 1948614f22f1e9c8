package store

import (
	"context"
	"time"

	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

// LogSignal 记录一条信号及其当前状态。
// 同一信号执行或被拒后再记一条,保留完整轨迹而不是原地改写。
func (s *Store) LogSignal(ctx context.Context, sig types.Signal, status, rejectReason string) error {
	entry := model.SignalLogModel{
		Timestamp:    time.Now().Unix(),
		Strategy:     sig.Strategy,
		MarketID:     sig.MarketID,
		TokenID:      sig.TokenID,
		Side:         string(sig.Side),
		Confidence:   sig.Confidence,
		TargetPrice:  sig.TargetPrice,
		Size:         sig.Size,
		Reason:       sig.Reason,
		Status:       status,
		RejectReason: rejectReason,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// ListRecentSignals 按时间倒序返回最近的信号,status 为空表示不过滤。
func (s *Store) ListRecentSignals(ctx context.Context, status string, limit int) ([]model.SignalLogModel, error) {
	var signals []model.SignalLogModel
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}
