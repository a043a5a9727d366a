// Package scheduler 定时触发排行榜刷新
package scheduler

import (
	"context"
	"errors"
	"ranking_engine/internal/service"
	"ranking_engine/internal/worker"
	"ranking_engine/pkg/logger"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const refreshTaskName = "leaderboard.refresh"

var ErrAlreadyStarted = errors.New("scheduler already started")

// Refresher 执行一次刷新
type Refresher interface {
	Refresh(ctx context.Context) (*service.RefreshSummary, error)
}

type Submitter interface {
	Submit(task worker.Task) (string, error)
}

type Scheduler struct {
	cron      *cron.Cron
	spec      string
	loc       *time.Location
	refresher Refresher
	submitter Submitter
	timeout   time.Duration

	mu       sync.Mutex
	started  bool
	schedule cron.Schedule
}

// New loc 为 nil 时使用 UTC
func New(spec string, loc *time.Location, refresher Refresher, submitter Submitter, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      spec,
		loc:       loc,
		refresher: refresher,
		submitter: submitter,
		timeout:   timeout,
	}
}

// Start 注册定时任务，同一实例只能调用一次
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return err
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.runScheduled))
	s.schedule = schedule
	s.started = true
	s.cron.Start()

	logger.Log.Info("Leaderboard refresh scheduled",
		zap.String("spec", s.spec),
		zap.Time("next_run", schedule.Next(time.Now().In(s.loc))))
	return nil
}

// Stop 停止调度并等待正在执行的刷新结束
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow 把一次刷新放入后台队列，立即返回任务 ID
func (s *Scheduler) TriggerNow() (string, error) {
	return s.submitter.Submit(worker.Task{
		Name:    refreshTaskName,
		Timeout: s.timeout,
		Run: func(ctx context.Context) error {
			_, err := s.refresher.Refresh(ctx)
			return err
		},
	})
}

// NextRun 下一次计划执行时间，未启动时为零值
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.schedule.Next(time.Now().In(s.loc))
}

func (s *Scheduler) runScheduled() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.refresher.Refresh(ctx)
	if err != nil {
		logger.Log.Error("Scheduled leaderboard refresh failed", zap.Error(err))
		return
	}
	logger.Log.Info("Scheduled leaderboard refresh finished",
		zap.String("cache_date", summary.CacheDate),
		zap.Int("users_ranked", summary.UsersRanked))
}
