package config

import (
	"fmt"
	"strings"
)

var validModes = map[string]bool{
	ModeMonitor: true,
	ModePaper:   true,
	ModeLive:    true,
}

var validSizingMethods = map[string]bool{
	"fixed":            true,
	"kelly":            true,
	"fractional_kelly": true,
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	if !validModes[mode] {
		return fmt.Errorf("mode must be one of monitor/paper/live, got %q", c.Mode)
	}
	c.Mode = mode
	if c.StartingBalance <= 0 {
		return fmt.Errorf("starting_balance must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Aggregation.validate(); err != nil {
		return err
	}
	if err := c.PositionSizing.validate(); err != nil {
		return err
	}
	if err := c.ConditionalOrders.validate(); err != nil {
		return err
	}
	if err := c.ExitManager.validate(); err != nil {
		return err
	}
	if err := c.Live.validate(mode); err != nil {
		return err
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be > 0")
	}
	if r.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be > 0")
	}
	if r.MaxOpenOrders <= 0 {
		return fmt.Errorf("risk.max_open_orders must be > 0")
	}
	return nil
}

func (a *AggregationConfig) validate() error {
	if a.MinConfidence < 0 || a.MinConfidence > 1 {
		return fmt.Errorf("aggregation.min_confidence must be in [0,1]")
	}
	if a.MinStrategies < 1 {
		return fmt.Errorf("aggregation.min_strategies must be >= 1")
	}
	return nil
}

func (p *PositionSizingConfig) validate() error {
	if !validSizingMethods[p.Method] {
		return fmt.Errorf("position_sizing.method must be one of fixed/kelly/fractional_kelly, got %q", p.Method)
	}
	if p.KellyFraction <= 0 || p.KellyFraction > 1 {
		return fmt.Errorf("position_sizing.kelly_fraction must be in (0,1]")
	}
	if p.MaxBetPct <= 0 || p.MaxBetPct > 1 {
		return fmt.Errorf("position_sizing.max_bet_pct must be in (0,1]")
	}
	return nil
}

func (o *ConditionalOrdersConfig) validate() error {
	if o.DefaultStopLossPct <= 0 || o.DefaultStopLossPct >= 1 {
		return fmt.Errorf("conditional_orders.default_stop_loss_pct must be in (0,1)")
	}
	if o.DefaultTakeProfitPct <= 0 {
		return fmt.Errorf("conditional_orders.default_take_profit_pct must be > 0")
	}
	if o.TrailingStopPct <= 0 || o.TrailingStopPct >= 1 {
		return fmt.Errorf("conditional_orders.trailing_stop_pct must be in (0,1)")
	}
	return nil
}

func (e *ExitManagerConfig) validate() error {
	if e.ProfitTargetPct <= 0 {
		return fmt.Errorf("exit_manager.profit_target_pct must be > 0")
	}
	if e.StopLossPct <= 0 || e.StopLossPct >= 1 {
		return fmt.Errorf("exit_manager.stop_loss_pct must be in (0,1)")
	}
	if e.MaxHoldHours <= 0 {
		return fmt.Errorf("exit_manager.max_hold_hours must be > 0")
	}
	return nil
}

// live 模式必须显式携带凭证,缺失是启动期错误而不是运行期兜底。
func (l *LiveConfig) validate(mode string) error {
	if mode != ModeLive {
		return nil
	}
	if strings.TrimSpace(l.PrivateKey) == "" {
		return fmt.Errorf("live mode requires live.private_key (or POLYMARKET_PRIVATE_KEY env)")
	}
	return nil
}
