package config

import "strings"

// 运行模式
const (
	ModeMonitor = "monitor"
	ModePaper   = "paper"
	ModeLive    = "live"
)

// Config 是 polyagent 的主配置载体。
type Config struct {
	App               AppConfig               `toml:"app" yaml:"app"`
	Mode              string                  `toml:"mode" yaml:"mode"` // monitor | paper | live
	StartingBalance   float64                 `toml:"starting_balance" yaml:"starting_balance"`
	PollInterval      int                     `toml:"poll_interval" yaml:"poll_interval"`         // 秒
	SnapshotInterval  int                     `toml:"snapshot_interval" yaml:"snapshot_interval"` // 秒
	Markets           MarketsConfig           `toml:"markets" yaml:"markets"`
	Risk              RiskConfig              `toml:"risk" yaml:"risk"`
	Aggregation       AggregationConfig       `toml:"aggregation" yaml:"aggregation"`
	PositionSizing    PositionSizingConfig    `toml:"position_sizing" yaml:"position_sizing"`
	ConditionalOrders ConditionalOrdersConfig `toml:"conditional_orders" yaml:"conditional_orders"`
	ExitManager       ExitManagerConfig       `toml:"exit_manager" yaml:"exit_manager"`
	Strategies        StrategiesConfig        `toml:"strategies" yaml:"strategies"`
	Data              DataConfig              `toml:"data" yaml:"data"`
	Backtest          BacktestConfig          `toml:"backtest" yaml:"backtest"`
	Alerts            AlertsConfig            `toml:"alerts" yaml:"alerts"`
	Live              LiveConfig              `toml:"live" yaml:"live"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level" yaml:"log_level"`
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"`
	LogPath  string `toml:"log_path" yaml:"log_path"`
	DBPath   string `toml:"db_path" yaml:"db_path"`
}

// MarketsConfig 控制每个 tick 拉取哪些市场。
type MarketsConfig struct {
	Tag   string   `toml:"tag" yaml:"tag"`
	Limit int      `toml:"limit" yaml:"limit"`
	Focus []string `toml:"focus" yaml:"focus"` // 非空时只处理这些 market id
}

type RiskConfig struct {
	MaxPositionSize float64 `toml:"max_position_size" yaml:"max_position_size"`
	MaxDailyLoss    float64 `toml:"max_daily_loss" yaml:"max_daily_loss"`
	MaxOpenOrders   int     `toml:"max_open_orders" yaml:"max_open_orders"`
}

type AggregationConfig struct {
	MinConfidence float64 `toml:"min_confidence" yaml:"min_confidence"`
	MinStrategies int     `toml:"min_strategies" yaml:"min_strategies"`
}

// 仓位计算方法
const (
	SizingFixed           = "fixed"
	SizingKelly           = "kelly"
	SizingFractionalKelly = "fractional_kelly"
)

type PositionSizingConfig struct {
	Method        string  `toml:"method" yaml:"method"` // fixed | kelly | fractional_kelly
	KellyFraction float64 `toml:"kelly_fraction" yaml:"kelly_fraction"`
	MaxBetPct     float64 `toml:"max_bet_pct" yaml:"max_bet_pct"`
}

type ConditionalOrdersConfig struct {
	Enabled              bool    `toml:"enabled" yaml:"enabled"`
	DefaultStopLossPct   float64 `toml:"default_stop_loss_pct" yaml:"default_stop_loss_pct"`
	DefaultTakeProfitPct float64 `toml:"default_take_profit_pct" yaml:"default_take_profit_pct"`
	TrailingStopEnabled  bool    `toml:"trailing_stop_enabled" yaml:"trailing_stop_enabled"`
	TrailingStopPct      float64 `toml:"trailing_stop_pct" yaml:"trailing_stop_pct"`
}

type ExitManagerConfig struct {
	Enabled         bool    `toml:"enabled" yaml:"enabled"`
	ProfitTargetPct float64 `toml:"profit_target_pct" yaml:"profit_target_pct"`
	StopLossPct     float64 `toml:"stop_loss_pct" yaml:"stop_loss_pct"`
	SignalReversal  bool    `toml:"signal_reversal" yaml:"signal_reversal"`
	MaxHoldHours    float64 `toml:"max_hold_hours" yaml:"max_hold_hours"`
}

// StrategiesConfig 按策略名组织的类型化配置,Enabled 显式声明。
type StrategiesConfig struct {
	SignalTrader     SignalTraderConfig     `toml:"signal_trader" yaml:"signal_trader"`
	Arbitrageur      ArbitrageurConfig      `toml:"arbitrageur" yaml:"arbitrageur"`
	TechnicalAnalyst TechnicalAnalystConfig `toml:"technical_analyst" yaml:"technical_analyst"`
}

type SignalTraderConfig struct {
	Enabled            bool    `toml:"enabled" yaml:"enabled"`
	VolumeThreshold    float64 `toml:"volume_threshold" yaml:"volume_threshold"`
	PriceMoveThreshold float64 `toml:"price_move_threshold" yaml:"price_move_threshold"`
}

type ArbitrageurConfig struct {
	Enabled           bool    `toml:"enabled" yaml:"enabled"`
	PriceSumTolerance float64 `toml:"price_sum_tolerance" yaml:"price_sum_tolerance"`
	MinDeviation      float64 `toml:"min_deviation" yaml:"min_deviation"`
	OrderSize         float64 `toml:"order_size" yaml:"order_size"`
}

type TechnicalAnalystConfig struct {
	Enabled         bool    `toml:"enabled" yaml:"enabled"`
	EMAFastPeriod   int     `toml:"ema_fast_period" yaml:"ema_fast_period"`
	EMASlowPeriod   int     `toml:"ema_slow_period" yaml:"ema_slow_period"`
	RSIPeriod       int     `toml:"rsi_period" yaml:"rsi_period"`
	HistoryInterval string  `toml:"history_interval" yaml:"history_interval"`
	HistoryFidelity int     `toml:"history_fidelity" yaml:"history_fidelity"`
	OrderSize       float64 `toml:"order_size" yaml:"order_size"`
}

// DataConfig 描述 polymarket CLI 数据源的访问方式。
type DataConfig struct {
	CLIPath        string  `toml:"cli_path" yaml:"cli_path"`
	CacheTTL       int     `toml:"cache_ttl" yaml:"cache_ttl"`             // 秒
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"` // 单次 CLI 调用超时
	RateLimit      float64 `toml:"rate_limit" yaml:"rate_limit"`           // 每秒请求数
	RateBurst      int     `toml:"rate_burst" yaml:"rate_burst"`
}

type BacktestConfig struct {
	DefaultSpread float64 `toml:"default_spread" yaml:"default_spread"`
	ReportPath    string  `toml:"report_path" yaml:"report_path"` // 非空时输出 HTML 权益曲线
}

type AlertsConfig struct {
	Console    bool   `toml:"console" yaml:"console"`
	WebhookURL string `toml:"webhook_url" yaml:"webhook_url"`
}

// LiveConfig 实盘凭证,缺失时 live 模式启动直接失败。
type LiveConfig struct {
	PrivateKey string `toml:"private_key" yaml:"-"`
	Funder     string `toml:"funder" yaml:"-"`
}

func (c *Config) IsMonitor() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), ModeMonitor)
}

func (c *Config) IsLive() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), ModeLive)
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
