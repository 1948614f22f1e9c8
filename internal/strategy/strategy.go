package strategy

import (
	"context"

	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/logger"
	"polyagent/internal/types"
)

// Strategy 分析行情并产出交易信号。
// 常规的"无机会"不是错误;返回错误表示该策略本轮失效,由调用方记录并跳过。
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, markets []types.Market, data dataprovider.Provider) ([]types.Signal, error)
}

// registryEntry 把策略名绑定到类型化配置的启用判断与构造函数。
type registryEntry struct {
	name    string
	enabled func(config.StrategiesConfig) bool
	build   func(config.StrategiesConfig) Strategy
}

// 注册顺序即构建顺序,保证多次构建结果一致。
var registry = []registryEntry{
	{
		name:    "signal_trader",
		enabled: func(c config.StrategiesConfig) bool { return c.SignalTrader.Enabled },
		build:   func(c config.StrategiesConfig) Strategy { return NewSignalTrader(c.SignalTrader) },
	},
	{
		name:    "arbitrageur",
		enabled: func(c config.StrategiesConfig) bool { return c.Arbitrageur.Enabled },
		build:   func(c config.StrategiesConfig) Strategy { return NewArbitrageur(c.Arbitrageur) },
	},
	{
		name:    "technical_analyst",
		enabled: func(c config.StrategiesConfig) bool { return c.TechnicalAnalyst.Enabled },
		build:   func(c config.StrategiesConfig) Strategy { return NewTechnicalAnalyst(c.TechnicalAnalyst) },
	},
}

// Build 按配置实例化所有启用的策略。
func Build(cfg config.StrategiesConfig) []Strategy {
	var out []Strategy
	for _, entry := range registry {
		if !entry.enabled(cfg) {
			logger.Debugf("strategy %s disabled, skipping", entry.name)
			continue
		}
		out = append(out, entry.build(cfg))
		logger.Infof("Loaded strategy: %s", entry.name)
	}
	return out
}
