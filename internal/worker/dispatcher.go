// Package worker 提供后台任务队列，替代请求内直接 go func() 的做法，
// 每个任务的失败都会被记录日志和指标。
package worker

import (
	"context"
	"errors"
	"ranking_engine/internal/util"
	"ranking_engine/pkg/logger"
	"ranking_engine/pkg/monitoring"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Task 一个后台工作单元
type Task struct {
	Name    string
	// Timeout 覆盖调度器默认的单任务超时，零值使用默认值
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type queuedTask struct {
	id       string
	task     Task
	queuedAt time.Time
}

type Dispatcher struct {
	workers int
	timeout time.Duration
	queue   chan queuedTask

	mu      sync.RWMutex
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		workers: workers,
		timeout: timeout,
		queue:   make(chan queuedTask, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Go(d.loop)
	}
	logger.Log.Info("Background dispatcher started", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.queue)))
}

// Submit 非阻塞入队，队列已满时返回 util.ErrQueueFull
func (d *Dispatcher) Submit(task Task) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrDispatcherStopped
	}

	qt := queuedTask{id: uuid.NewString(), task: task, queuedAt: time.Now()}
	select {
	case d.queue <- qt:
		monitoring.QueueDepth.Set(float64(len(d.queue)))
		return qt.id, nil
	default:
		monitoring.BackgroundTasks.WithLabelValues(task.Name, "rejected").Inc()
		logger.Log.Warn("Background queue full, task rejected", zap.String("task", task.Name))
		return "", util.ErrQueueFull
	}
}

// Stop 停止接收新任务并等待队列中的任务执行完；ctx 到期时取消仍在运行的任务
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		d.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// Pending 队列中等待执行的任务数
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) loop() {
	for qt := range d.queue {
		monitoring.QueueDepth.Set(float64(len(d.queue)))
		d.run(qt)
	}
}

func (d *Dispatcher) run(qt queuedTask) {
	ctx := d.ctx
	timeout := d.timeout
	if qt.task.Timeout > 0 {
		timeout = qt.task.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(d.ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = qt.task.Run(ctx)
	})
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	fields := []zap.Field{
		zap.String("task_id", qt.id),
		zap.String("task", qt.task.Name),
		zap.Duration("wait", start.Sub(qt.queuedAt)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		monitoring.BackgroundTasks.WithLabelValues(qt.task.Name, "failed").Inc()
		logger.Log.Error("Background task failed", append(fields, zap.Error(err))...)
		return
	}
	monitoring.BackgroundTasks.WithLabelValues(qt.task.Name, "succeeded").Inc()
	logger.Log.Debug("Background task finished", fields...)
}
