package config

import "strings"

// 默认值常量
const (
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9980"
	defaultAppLogPath        = "data/logs/polyagent.log"
	defaultAppDBPath         = "data/polyagent.db"
	defaultMode              = ModePaper
	defaultStartingBalance   = 1000.0
	defaultPollInterval      = 60
	defaultSnapshotInterval  = 300
	defaultMarketsLimit      = 50
	defaultRiskMaxPosition   = 100.0
	defaultRiskMaxDailyLoss  = 50.0
	defaultRiskMaxOpenOrders = 10
	defaultAggMinConfidence  = 0.5
	defaultAggMinStrategies  = 1
	defaultSizingMethod      = "fixed"
	defaultKellyFraction     = 0.25
	defaultMaxBetPct         = 0.10
	defaultStopLossPct       = 0.15
	defaultTakeProfitPct     = 0.30
	defaultTrailingStopPct   = 0.10
	defaultProfitTargetPct   = 0.20
	defaultExitStopLossPct   = 0.15
	defaultMaxHoldHours      = 72.0
	defaultVolumeThreshold   = 5000.0
	defaultPriceMoveThresh   = 0.05
	defaultPriceSumTolerance = 0.02
	defaultArbMinDeviation   = 0.03
	defaultOrderSize         = 25.0
	defaultEMAFast           = 8
	defaultEMASlow           = 21
	defaultRSIPeriod         = 14
	defaultHistoryInterval   = "1w"
	defaultHistoryFidelity   = 60
	defaultCLIPath           = "polymarket"
	defaultCacheTTL          = 30
	defaultCLITimeout        = 30
	defaultRateLimit         = 5.0
	defaultRateBurst         = 10
	defaultBacktestSpread    = 0.02
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("mode", &c.Mode, defaultMode),
		fieldDefault{
			key:   "starting_balance",
			need:  func() bool { return c.StartingBalance <= 0 },
			apply: func() { c.StartingBalance = defaultStartingBalance },
		},
		fieldDefault{
			key:   "poll_interval",
			need:  func() bool { return c.PollInterval <= 0 },
			apply: func() { c.PollInterval = defaultPollInterval },
		},
		fieldDefault{
			key:   "snapshot_interval",
			need:  func() bool { return c.SnapshotInterval <= 0 },
			apply: func() { c.SnapshotInterval = defaultSnapshotInterval },
		},
	)
	c.App.applyDefaults(keys)
	c.Markets.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Aggregation.applyDefaults(keys)
	c.PositionSizing.applyDefaults(keys)
	c.ConditionalOrders.applyDefaults(keys)
	c.ExitManager.applyDefaults(keys)
	c.Strategies.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Alerts.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.db_path", &a.DBPath, defaultAppDBPath),
	)
}

func (m *MarketsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "markets.limit",
			need:  func() bool { return m.Limit <= 0 },
			apply: func() { m.Limit = defaultMarketsLimit },
		},
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.max_position_size",
			need:  func() bool { return r.MaxPositionSize <= 0 },
			apply: func() { r.MaxPositionSize = defaultRiskMaxPosition },
		},
		fieldDefault{
			key:   "risk.max_daily_loss",
			need:  func() bool { return r.MaxDailyLoss <= 0 },
			apply: func() { r.MaxDailyLoss = defaultRiskMaxDailyLoss },
		},
		fieldDefault{
			key:   "risk.max_open_orders",
			need:  func() bool { return r.MaxOpenOrders <= 0 },
			apply: func() { r.MaxOpenOrders = defaultRiskMaxOpenOrders },
		},
	)
}

func (a *AggregationConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "aggregation.min_confidence",
			need:  func() bool { return a.MinConfidence <= 0 },
			apply: func() { a.MinConfidence = defaultAggMinConfidence },
		},
		fieldDefault{
			key:   "aggregation.min_strategies",
			need:  func() bool { return a.MinStrategies <= 0 },
			apply: func() { a.MinStrategies = defaultAggMinStrategies },
		},
	)
}

func (p *PositionSizingConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("position_sizing.method", &p.Method, defaultSizingMethod),
		fieldDefault{
			key:   "position_sizing.kelly_fraction",
			need:  func() bool { return p.KellyFraction <= 0 },
			apply: func() { p.KellyFraction = defaultKellyFraction },
		},
		fieldDefault{
			key:   "position_sizing.max_bet_pct",
			need:  func() bool { return p.MaxBetPct <= 0 },
			apply: func() { p.MaxBetPct = defaultMaxBetPct },
		},
	)
	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
}

func (o *ConditionalOrdersConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "conditional_orders.default_stop_loss_pct",
			need:  func() bool { return o.DefaultStopLossPct <= 0 },
			apply: func() { o.DefaultStopLossPct = defaultStopLossPct },
		},
		fieldDefault{
			key:   "conditional_orders.default_take_profit_pct",
			need:  func() bool { return o.DefaultTakeProfitPct <= 0 },
			apply: func() { o.DefaultTakeProfitPct = defaultTakeProfitPct },
		},
		fieldDefault{
			key:   "conditional_orders.trailing_stop_pct",
			need:  func() bool { return o.TrailingStopPct <= 0 },
			apply: func() { o.TrailingStopPct = defaultTrailingStopPct },
		},
	)
}

func (e *ExitManagerConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("exit_manager.signal_reversal", &e.SignalReversal, true),
		fieldDefault{
			key:   "exit_manager.profit_target_pct",
			need:  func() bool { return e.ProfitTargetPct <= 0 },
			apply: func() { e.ProfitTargetPct = defaultProfitTargetPct },
		},
		fieldDefault{
			key:   "exit_manager.stop_loss_pct",
			need:  func() bool { return e.StopLossPct <= 0 },
			apply: func() { e.StopLossPct = defaultExitStopLossPct },
		},
		fieldDefault{
			key:   "exit_manager.max_hold_hours",
			need:  func() bool { return e.MaxHoldHours <= 0 },
			apply: func() { e.MaxHoldHours = defaultMaxHoldHours },
		},
	)
}

func (s *StrategiesConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "strategies.signal_trader.volume_threshold",
			need:  func() bool { return s.SignalTrader.VolumeThreshold <= 0 },
			apply: func() { s.SignalTrader.VolumeThreshold = defaultVolumeThreshold },
		},
		fieldDefault{
			key:   "strategies.signal_trader.price_move_threshold",
			need:  func() bool { return s.SignalTrader.PriceMoveThreshold <= 0 },
			apply: func() { s.SignalTrader.PriceMoveThreshold = defaultPriceMoveThresh },
		},
		fieldDefault{
			key:   "strategies.arbitrageur.price_sum_tolerance",
			need:  func() bool { return s.Arbitrageur.PriceSumTolerance <= 0 },
			apply: func() { s.Arbitrageur.PriceSumTolerance = defaultPriceSumTolerance },
		},
		fieldDefault{
			key:   "strategies.arbitrageur.min_deviation",
			need:  func() bool { return s.Arbitrageur.MinDeviation <= 0 },
			apply: func() { s.Arbitrageur.MinDeviation = defaultArbMinDeviation },
		},
		fieldDefault{
			key:   "strategies.arbitrageur.order_size",
			need:  func() bool { return s.Arbitrageur.OrderSize <= 0 },
			apply: func() { s.Arbitrageur.OrderSize = defaultOrderSize },
		},
		fieldDefault{
			key:   "strategies.technical_analyst.ema_fast_period",
			need:  func() bool { return s.TechnicalAnalyst.EMAFastPeriod <= 0 },
			apply: func() { s.TechnicalAnalyst.EMAFastPeriod = defaultEMAFast },
		},
		fieldDefault{
			key:   "strategies.technical_analyst.ema_slow_period",
			need:  func() bool { return s.TechnicalAnalyst.EMASlowPeriod <= 0 },
			apply: func() { s.TechnicalAnalyst.EMASlowPeriod = defaultEMASlow },
		},
		fieldDefault{
			key:   "strategies.technical_analyst.rsi_period",
			need:  func() bool { return s.TechnicalAnalyst.RSIPeriod <= 0 },
			apply: func() { s.TechnicalAnalyst.RSIPeriod = defaultRSIPeriod },
		},
		stringFieldDefault("strategies.technical_analyst.history_interval",
			&s.TechnicalAnalyst.HistoryInterval, defaultHistoryInterval),
		fieldDefault{
			key:   "strategies.technical_analyst.history_fidelity",
			need:  func() bool { return s.TechnicalAnalyst.HistoryFidelity <= 0 },
			apply: func() { s.TechnicalAnalyst.HistoryFidelity = defaultHistoryFidelity },
		},
		fieldDefault{
			key:   "strategies.technical_analyst.order_size",
			need:  func() bool { return s.TechnicalAnalyst.OrderSize <= 0 },
			apply: func() { s.TechnicalAnalyst.OrderSize = defaultOrderSize },
		},
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.cli_path", &d.CLIPath, defaultCLIPath),
		fieldDefault{
			key:   "data.cache_ttl",
			need:  func() bool { return d.CacheTTL <= 0 },
			apply: func() { d.CacheTTL = defaultCacheTTL },
		},
		fieldDefault{
			key:   "data.timeout_seconds",
			need:  func() bool { return d.TimeoutSeconds <= 0 },
			apply: func() { d.TimeoutSeconds = defaultCLITimeout },
		},
		fieldDefault{
			key:   "data.rate_limit",
			need:  func() bool { return d.RateLimit <= 0 },
			apply: func() { d.RateLimit = defaultRateLimit },
		},
		fieldDefault{
			key:   "data.rate_burst",
			need:  func() bool { return d.RateBurst <= 0 },
			apply: func() { d.RateBurst = defaultRateBurst },
		},
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "backtest.default_spread",
			need:  func() bool { return b.DefaultSpread <= 0 },
			apply: func() { b.DefaultSpread = defaultBacktestSpread },
		},
	)
}

func (a *AlertsConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("alerts.console", &a.Console, true),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
