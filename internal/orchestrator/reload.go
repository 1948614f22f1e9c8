package orchestrator

import (
	"context"
	"fmt"

	"polyagent/internal/alerts"
	"polyagent/internal/config"
	"polyagent/internal/exitmanager"
	"polyagent/internal/logger"
	"polyagent/internal/metrics"
	"polyagent/internal/orders"
	"polyagent/internal/risk"
	"polyagent/internal/sizing"
	"polyagent/internal/strategy"
)

// ReloadConfig 应用一份热重载的新配置。
// 运行模式绑定执行器的资金语义,改模式必须重启进程;
// 其余配置当场重建相关组件,执行器与持仓原样保留。
func (o *Orchestrator) ReloadConfig(ctx context.Context, next *config.Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if next.Mode != o.cfg.Mode {
		err := fmt.Errorf("mode change %s -> %s requires restart", o.cfg.Mode, next.Mode)
		metrics.ConfigReloadsTotal.WithLabelValues("rejected").Inc()
		if auditErr := o.store.LogConfigChange(ctx, []string{"mode"}, false, err.Error()); auditErr != nil {
			logger.Errorf("reload: failed to audit rejection: %v", auditErr)
		}
		return err
	}

	changed, err := config.Diff(o.cfg, next)
	if err != nil {
		logger.Warnf("reload: could not diff configs: %v", err)
	}
	if len(changed) == 0 {
		logger.Infof("reload: no effective changes, keeping current config")
		return nil
	}

	o.cfg = next
	o.strategies = strategy.Build(next.Strategies)
	o.sizer = sizing.New(next.PositionSizing)
	o.gate = risk.NewGate(next.Risk)
	o.exits = exitmanager.New(next.ExitManager)
	o.alerter = alerts.NewManager(next.Alerts)
	o.conditionals = orders.NewEngine(next.ConditionalOrders, o.store, o.provider, o.exec)

	metrics.ConfigReloadsTotal.WithLabelValues("accepted").Inc()
	if err := o.store.LogConfigChange(ctx, changed, true, ""); err != nil {
		logger.Errorf("reload: failed to audit change: %v", err)
	}
	logger.Infof("reload: applied config with %d changed keys: %v", len(changed), changed)
	return nil
}
