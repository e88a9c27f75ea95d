package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"tpf-ecosystem/pkg/logger"
)

// Sweeper 清理过期数据，返回清理数量
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepScheduler 定时清理推广链接与广播词
// 读取路径本身也会清理，定时任务保证无人访问时内存也能回收
type SweepScheduler struct {
	cron     *cron.Cron
	cronExpr string
	sweepers map[string]Sweeper
	timeout  time.Duration
}

func NewSweepScheduler(cronExpr string, sweepers map[string]Sweeper) *SweepScheduler {
	return &SweepScheduler{
		cron:     cron.New(cron.WithSeconds()),
		cronExpr: cronExpr,
		sweepers: sweepers,
		timeout:  30 * time.Second,
	}
}

func (s *SweepScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.runOnce)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.WithFields(map[string]interface{}{
		"cron":     s.cronExpr,
		"sweepers": len(s.sweepers),
	}).Info("Expiry sweep scheduler started")
	return nil
}

func (s *SweepScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Expiry sweep scheduler stopped")
}

func (s *SweepScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.SweepAll(ctx)
}

// SweepAll 依次执行全部清理，单个失败不影响其它；返回各自清理数量
func (s *SweepScheduler) SweepAll(ctx context.Context) map[string]int {
	results := make(map[string]int, len(s.sweepers))
	for name, sweeper := range s.sweepers {
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"store": name,
			}).WithError(err).Error("Expiry sweep failed")
			continue
		}
		results[name] = n
		if n > 0 {
			logger.WithFields(map[string]interface{}{
				"store":   name,
				"evicted": n,
			}).Info("Expired items swept")
		}
	}
	return results
}
