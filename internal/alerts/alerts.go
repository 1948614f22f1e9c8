package alerts

import (
	"fmt"

	"polyagent/internal/config"
	"polyagent/internal/logger"
)

// Sink 是一条告警通道。实现要小,方便叠加新通道。
type Sink interface {
	Send(text string) error
}

// Manager 把同一条告警扇出到所有通道。
// 单个通道失败只记日志,不影响其他通道,也不向上冒泡。
type Manager struct {
	sinks []Sink
}

func NewManager(cfg config.AlertsConfig) *Manager {
	var sinks []Sink
	if cfg.Console {
		sinks = append(sinks, &ConsoleSink{})
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, NewWebhookSink(cfg.WebhookURL))
	}
	return &Manager{sinks: sinks}
}

func (m *Manager) Send(text string) {
	for _, sink := range m.sinks {
		if err := sink.Send(text); err != nil {
			logger.Errorf("alert sink failed: %v", err)
		}
	}
}

// Sendf 是 Send 的格式化便捷入口。
func (m *Manager) Sendf(format string, args ...interface{}) {
	m.Send(fmt.Sprintf(format, args...))
}
