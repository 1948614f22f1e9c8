// Package logger 提供进程级的格式化日志入口,底层是 log/slog 的 TextHandler。
// 级别和输出目标可以在运行期切换,配置热更新时会用到。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

var (
	levelVar slog.LevelVar
	mu       sync.RWMutex
	base     = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &levelVar}))
)

// SetOutput 把日志重定向到 w,通常是终端和日志文件的 MultiWriter。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	base = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
	mu.Unlock()
}

// SetLevel 按名字切级别,认不出的名字落回 info。
func SetLevel(level string) {
	lv, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lv = slog.LevelInfo
	}
	levelVar.Set(lv)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debugf(format string, v ...any) {
	current().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	current().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	current().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	current().Error(fmt.Sprintf(format, v...))
}

// InfoBlock 把多行摘要逐行打到 info 级,空行跳过。
// 启动 banner 和回测结果用它,避免一条超长日志。
func InfoBlock(lines ...string) {
	for _, line := range lines {
		for _, part := range strings.Split(line, "\n") {
			if part = strings.TrimSpace(part); part != "" {
				Infof("%s", part)
			}
		}
	}
}
