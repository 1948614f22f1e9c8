package model

import "gorm.io/datatypes"

// TradeModel 对应 trades 表,只追加不修改。
type TradeModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Timestamp int64   `gorm:"column:timestamp;index"`
	MarketID  string  `gorm:"column:market_id"`
	TokenID   string  `gorm:"column:token_id;index"`
	Side      string  `gorm:"column:side"`
	Price     float64 `gorm:"column:price"`
	Size      float64 `gorm:"column:size"`
	Shares    float64 `gorm:"column:shares"`
	Strategy  string  `gorm:"column:strategy"`
	Reason    string  `gorm:"column:reason"`
}

func (TradeModel) TableName() string { return "trades" }

// 信号生命周期状态
const (
	SignalStatusGenerated = "generated"
	SignalStatusExecuted  = "executed"
	SignalStatusRejected  = "rejected"
)

// SignalLogModel 对应 signal_log 表,记录信号从产生到执行/拒绝的全过程。
type SignalLogModel struct {
	ID           int64   `gorm:"column:id;primaryKey"`
	Timestamp    int64   `gorm:"column:timestamp;index"`
	Strategy     string  `gorm:"column:strategy"`
	MarketID     string  `gorm:"column:market_id"`
	TokenID      string  `gorm:"column:token_id"`
	Side         string  `gorm:"column:side"`
	Confidence   float64 `gorm:"column:confidence"`
	TargetPrice  float64 `gorm:"column:target_price"`
	Size         float64 `gorm:"column:size"`
	Reason       string  `gorm:"column:reason"`
	Status       string  `gorm:"column:status;index"`
	RejectReason string  `gorm:"column:reject_reason"`
}

func (SignalLogModel) TableName() string { return "signal_log" }

// SnapshotModel 对应 portfolio_snapshots 表。
// Positions 是 token_id -> position 的 JSON,重启恢复时整体反序列化。
type SnapshotModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Timestamp  int64          `gorm:"column:timestamp;index"`
	Balance    float64        `gorm:"column:balance"`
	TotalValue float64        `gorm:"column:total_value"`
	Positions  datatypes.JSON `gorm:"column:positions;type:TEXT"`
}

func (SnapshotModel) TableName() string { return "portfolio_snapshots" }

// ConditionalOrderModel 对应 conditional_orders 表。
// HighWatermark/TrailPercent 只对追踪止损有意义,其余类型存 NULL。
type ConditionalOrderModel struct {
	ID              string   `gorm:"column:id;primaryKey"`
	TokenID         string   `gorm:"column:token_id;index"`
	MarketID        string   `gorm:"column:market_id"`
	OrderType       string   `gorm:"column:order_type"`
	Status          string   `gorm:"column:status;index"`
	TriggerPrice    float64  `gorm:"column:trigger_price"`
	Size            float64  `gorm:"column:size"`
	ParentStrategy  string   `gorm:"column:parent_strategy"`
	Reason          string   `gorm:"column:reason"`
	HighWatermark   *float64 `gorm:"column:high_watermark"`
	TrailPercent    *float64 `gorm:"column:trail_percent"`
	CreatedAtUnix   int64    `gorm:"column:created_at"`
	TriggeredAtUnix *int64   `gorm:"column:triggered_at"`
}

func (ConditionalOrderModel) TableName() string { return "conditional_orders" }

// ConfigAuditModel 对应 config_audit_log 表,记录每次热重载改了哪些键。
type ConfigAuditModel struct {
	ID           int64          `gorm:"column:id;primaryKey"`
	Timestamp    int64          `gorm:"column:timestamp;index"`
	ChangedPaths datatypes.JSON `gorm:"column:changed_paths;type:TEXT"`
	Accepted     bool           `gorm:"column:accepted"`
	Note         string         `gorm:"column:note"`
}

func (ConfigAuditModel) TableName() string { return "config_audit_log" }
