package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"polyagent/internal/logger"
)

// ReloadFunc 在配置文件变化且重新解析成功后被调用。
// 返回错误表示新配置被拒绝,Watcher 只负责记录。
type ReloadFunc func(cfg *Config) error

// Watcher 监听配置文件变化并触发热重载。
type Watcher struct {
	path string
	v    *viper.Viper

	mu       sync.Mutex
	onReload ReloadFunc
}

// NewWatcher 读取配置文件并开始监听。onReload 可以为 nil,之后用 SetReloadFunc 注册。
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{path: path, v: v, onReload: onReload}
	v.OnConfigChange(func(evt fsnotify.Event) {
		w.handleChange()
	})
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) SetReloadFunc(fn ReloadFunc) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

func (w *Watcher) handleChange() {
	if err := w.v.ReadInConfig(); err != nil {
		logger.Errorf("config reload: reread %s failed: %v", w.path, err)
		return
	}
	cfg, err := fromViper(w.v)
	if err != nil {
		logger.Errorf("config reload: invalid config, keeping previous: %v", err)
		return
	}
	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn == nil {
		return
	}
	if err := fn(cfg); err != nil {
		logger.Warnf("config reload rejected: %v", err)
	}
}
