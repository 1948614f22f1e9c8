package orders

import (
	"time"

	"polyagent/internal/store/model"
)

// 条件单类型
const (
	TypeStopLoss     = "stop_loss"
	TypeTakeProfit   = "take_profit"
	TypeTrailingStop = "trailing_stop"
)

// 条件单状态
const (
	StatusActive    = "active"
	StatusTriggered = "triggered"
	StatusCancelled = "cancelled"
)

// ConditionalOrder 是一张潜伏的平仓指令,每轮 tick 对照最新 bid 检查。
// HighWatermark 和 TrailPercent 仅追踪止损使用。
type ConditionalOrder struct {
	ID             string
	TokenID        string
	MarketID       string
	OrderType      string
	Status         string
	TriggerPrice   float64
	Size           float64
	ParentStrategy string
	Reason         string
	HighWatermark  *float64
	TrailPercent   *float64
	CreatedAt      time.Time
	TriggeredAt    *time.Time
}

func (o *ConditionalOrder) toModel() *model.ConditionalOrderModel {
	m := &model.ConditionalOrderModel{
		ID:             o.ID,
		TokenID:        o.TokenID,
		MarketID:       o.MarketID,
		OrderType:      o.OrderType,
		Status:         o.Status,
		TriggerPrice:   o.TriggerPrice,
		Size:           o.Size,
		ParentStrategy: o.ParentStrategy,
		Reason:         o.Reason,
		HighWatermark:  o.HighWatermark,
		TrailPercent:   o.TrailPercent,
		CreatedAtUnix:  o.CreatedAt.Unix(),
	}
	if o.TriggeredAt != nil {
		ts := o.TriggeredAt.Unix()
		m.TriggeredAtUnix = &ts
	}
	return m
}

func fromModel(m model.ConditionalOrderModel) ConditionalOrder {
	o := ConditionalOrder{
		ID:             m.ID,
		TokenID:        m.TokenID,
		MarketID:       m.MarketID,
		OrderType:      m.OrderType,
		Status:         m.Status,
		TriggerPrice:   m.TriggerPrice,
		Size:           m.Size,
		ParentStrategy: m.ParentStrategy,
		Reason:         m.Reason,
		HighWatermark:  m.HighWatermark,
		TrailPercent:   m.TrailPercent,
		CreatedAt:      time.Unix(m.CreatedAtUnix, 0),
	}
	if m.TriggeredAtUnix != nil {
		ts := time.Unix(*m.TriggeredAtUnix, 0)
		o.TriggeredAt = &ts
	}
	return o
}
