package app

import (
	"context"
	"fmt"
	"time"

	"polyagent/internal/alerts"
	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/executor"
	"polyagent/internal/logger"
	"polyagent/internal/orchestrator"
	"polyagent/internal/pkg/circuit"
	"polyagent/internal/scheduler"
	"polyagent/internal/store"
	transporthttp "polyagent/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

const (
	tickFailureThreshold = 5
	tickBreakerCooldown  = 5 * time.Minute
)

// App 负责应用级编排:加载配置→初始化依赖→启动 tick 循环与 HTTP 服务。
type App struct {
	cfg     *config.Config
	cfgPath string

	store   *store.Store
	orch    *orchestrator.Orchestrator
	http    *transporthttp.Server
	breaker *circuit.Breaker
	alerter *alerts.Manager
}

// NewApp 根据配置构建应用对象(不启动)。cfgPath 非空时启用配置热重载。
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	st, err := store.Open(cfg.App.DBPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	exec, err := executor.New(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if trader, ok := exec.(*executor.PaperTrader); ok {
		if err := trader.RecoverFromDB(context.Background()); err != nil {
			logger.Warnf("恢复组合快照失败,使用初始余额: %v", err)
		}
	}

	provider := dataprovider.NewCLIClient(cfg.Data)
	orch := orchestrator.New(cfg, provider, exec, st)

	httpSrv, err := transporthttp.NewServer(transporthttp.Config{
		Addr:         cfg.App.HTTPAddr,
		Orchestrator: orch,
		Store:        st,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	alerter := alerts.NewManager(cfg.Alerts)
	breaker := circuit.NewBreaker("tick", tickFailureThreshold, tickBreakerCooldown)
	breaker.OnStateChange(func(name string, from, to circuit.State) {
		logger.Warnf("breaker %s: %s -> %s", name, from, to)
		if to == circuit.StateOpen {
			alerter.Sendf("⚠️ tick 连续失败 %d 次,熔断 %s,暂停交易决策", tickFailureThreshold, tickBreakerCooldown)
		}
	})

	return &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		store:   st,
		orch:    orch,
		http:    httpSrv,
		breaker: breaker,
		alerter: alerter,
	}, nil
}

// Run 启动 tick 循环和 HTTP 服务,阻塞直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()

	logger.InfoBlock(
		"polyagent 启动",
		fmt.Sprintf("模式: %s", a.cfg.Mode),
		fmt.Sprintf("轮询间隔: %ds", a.cfg.PollInterval),
		fmt.Sprintf("HTTP: %s", a.cfg.App.HTTPAddr),
		fmt.Sprintf("数据库: %s", a.cfg.App.DBPath),
	)

	if a.cfgPath != "" {
		if _, err := config.NewWatcher(a.cfgPath, func(next *config.Config) error {
			return a.orch.ReloadConfig(ctx, next)
		}); err != nil {
			logger.Warnf("配置热重载不可用: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		interval := time.Duration(a.cfg.PollInterval) * time.Second
		sched := scheduler.NewIntervalScheduler(ctx, interval)
		sched.Start(func() { a.runTick(ctx) })
		return nil
	})

	return group.Wait()
}

func (a *App) runTick(ctx context.Context) {
	if !a.breaker.Allow() {
		logger.Warnf("tick 跳过: 熔断器打开")
		return
	}
	summary, err := a.orch.Tick(ctx)
	if err != nil {
		a.breaker.RecordFailure()
		logger.Errorf("tick 失败: %v", err)
		return
	}
	a.breaker.RecordSuccess()
	logger.Infof("tick 完成: markets=%d signals=%d trades=%d conditional=%d exits=%d",
		summary.MarketsFetched, summary.SignalsGenerated, summary.TradesExecuted,
		summary.ConditionalTriggered, summary.ExitsExecuted)
}

// TickOnce 执行单次决策循环后返回,供 tick 子命令使用。
func (a *App) TickOnce(ctx context.Context) (orchestrator.TickSummary, error) {
	defer a.store.Close()
	return a.orch.Tick(ctx)
}
