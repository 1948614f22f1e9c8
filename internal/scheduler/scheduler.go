package scheduler

import (
	"context"
	"time"

	"polyagent/internal/logger"
)

// IntervalScheduler 按固定间隔驱动决策循环。
// 每轮 task 结束后重新计时,task 跑得慢不会追加补偿执行。
type IntervalScheduler struct {
	Interval       time.Duration
	RunImmediately bool

	ctx context.Context
}

func NewIntervalScheduler(ctx context.Context, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Interval:       interval,
		RunImmediately: true,
		ctx:            ctx,
	}
}

// Start 阻塞运行直到 ctx 取消。
func (s *IntervalScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("IntervalScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("IntervalScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	logger.Infof("IntervalScheduler: started interval=%s run_immediately=%v", s.Interval, s.RunImmediately)

	if s.RunImmediately {
		task()
	}

	for {
		timer := time.NewTimer(s.Interval)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("IntervalScheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		task()
	}
}
