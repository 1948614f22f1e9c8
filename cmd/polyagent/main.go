package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"polyagent/internal/app"
	"polyagent/internal/backtest"
	"polyagent/internal/config"
	"polyagent/internal/logger"
)

func main() {
	var (
		cfgPath = flag.String("config", defaultConfigPath(), "配置文件路径 (yaml)")
		dbPath  = flag.String("db", "", "覆盖配置中的数据库路径")
		csvPath = flag.String("history", "", "backtest: 历史价格 CSV 路径")
		startTS = flag.String("start", "", "backtest: 起始时间 (RFC3339 或 2006-01-02)")
		endTS   = flag.String("end", "", "backtest: 结束时间 (RFC3339 或 2006-01-02)")
		liveOK  = flag.Bool("live", false, "确认以 live 模式运行真实资金")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	if *dbPath != "" {
		cfg.App.DBPath = *dbPath
	}

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)

	cmd := "run"
	if args := flag.Args(); len(args) > 0 {
		cmd = args[0]
	}

	// live 模式动用真实资金,必须双重确认
	if cfg.IsLive() && (cmd == "run" || cmd == "tick") && !*liveOK {
		log.Fatalf("配置为 live 模式,运行需显式加 -live 确认")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "run":
		a, err := app.NewApp(cfg, *cfgPath)
		if err != nil {
			log.Fatalf("初始化应用失败: %v", err)
		}
		if err := a.Run(ctx); err != nil {
			log.Fatalf("运行失败: %v", err)
		}
	case "tick":
		a, err := app.NewApp(cfg, "")
		if err != nil {
			log.Fatalf("初始化应用失败: %v", err)
		}
		summary, err := a.TickOnce(ctx)
		if err != nil {
			log.Fatalf("tick 失败: %v", err)
		}
		logger.Infof("tick 完成: markets=%d signals=%d trades=%d conditional=%d exits=%d",
			summary.MarketsFetched, summary.SignalsGenerated, summary.TradesExecuted,
			summary.ConditionalTriggered, summary.ExitsExecuted)
	case "backtest":
		if err := runBacktest(ctx, cfg, *csvPath, *startTS, *endTS); err != nil {
			log.Fatalf("回测失败: %v", err)
		}
	default:
		log.Fatalf("未知命令 %q (支持 run | tick | backtest)", cmd)
	}
}

func runBacktest(ctx context.Context, cfg *config.Config, csvPath, startRaw, endRaw string) error {
	if csvPath == "" {
		return fmt.Errorf("backtest 需要 -history <csv>")
	}
	start, err := parseTimeFlag(startRaw)
	if err != nil {
		return fmt.Errorf("解析 -start 失败: %w", err)
	}
	end, err := parseTimeFlag(endRaw)
	if err != nil {
		return fmt.Errorf("解析 -end 失败: %w", err)
	}

	provider, err := backtest.NewHistoricalProvider(csvPath, cfg.Backtest.DefaultSpread)
	if err != nil {
		return err
	}
	result, err := backtest.NewEngine(cfg, provider).Run(ctx, start, end)
	if err != nil {
		return err
	}

	resultRoot := filepath.Dir(cfg.App.DBPath)
	store, err := backtest.NewResultStore(resultRoot)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveResult(ctx, result); err != nil {
		return err
	}

	m := result.Metrics
	logger.InfoBlock(
		fmt.Sprintf("回测完成 run=%s", result.RunID),
		fmt.Sprintf("ticks: %d", result.Ticks),
		fmt.Sprintf("期末净值: %.2f (收益 %+.2f%%)", m.FinalValue, m.TotalReturn*100),
		fmt.Sprintf("sharpe: %.2f  最大回撤: %.2f%%", m.SharpeRatio, m.MaxDrawdown*100),
		fmt.Sprintf("胜率: %.1f%% (%d/%d)  盈亏比: %.2f", m.WinRate*100, m.Wins, m.Trades, m.ProfitFactor),
	)

	if cfg.Backtest.ReportPath != "" {
		if err := backtest.WriteReport(result, cfg.Backtest.ReportPath); err != nil {
			return fmt.Errorf("写入权益曲线报告失败: %w", err)
		}
		logger.Infof("权益曲线已写入 %s", cfg.Backtest.ReportPath)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("配置文件 %s 不存在,使用默认配置", path)
		return config.LoadDefaults(), nil
	}
	return config.Load(path)
}

func parseTimeFlag(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间 %q", raw)
}

func defaultConfigPath() string {
	if p := os.Getenv("POLYAGENT_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
