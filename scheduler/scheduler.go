package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roadmap_tutor/config"
	"roadmap_tutor/lock"
	"roadmap_tutor/logger"
	"roadmap_tutor/metrics"
	"roadmap_tutor/recommender"
)

// 将秒数转换为时间间隔
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// 计算下一个指定时间点
func getNextTimePoint(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if next.Before(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// 任务类型
type TaskType int

const (
	TaskDatasetWarmup TaskType = iota
	TaskScratchSweep
)

func (t TaskType) String() string {
	switch t {
	case TaskDatasetWarmup:
		return "dataset_warmup"
	case TaskScratchSweep:
		return "scratch_sweep"
	default:
		return "unknown"
	}
}

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Description string
}

// Refresher 重新生成数据集快照
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// 任务调度器
type Scheduler struct {
	cfg        *config.Config
	datasets   Refresher
	locker     lock.Locker
	lockKey    string
	scratchDir string

	tasks map[TaskType]*TaskStatus
	mutex sync.Mutex
	wg    sync.WaitGroup
}

// 创建新的调度器。lockKey 与请求路径刷新数据集时使用同一个锁
func NewScheduler(cfg *config.Config, datasets Refresher, locker lock.Locker, lockKey string) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		datasets:   datasets,
		locker:     locker,
		lockKey:    lockKey,
		scratchDir: cfg.Recommender.ScratchDir,
		tasks:      make(map[TaskType]*TaskStatus),
	}
}

// Start 初始化任务并启动主循环，ctx 取消后退出
func (s *Scheduler) Start(ctx context.Context) {
	s.initTasks(time.Now())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	logger.Info("scheduler started", "check_interval_sec", s.cfg.Scheduler.CheckIntervalSec)
}

// Wait 等待主循环和正在执行的任务结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// 初始化任务
func (s *Scheduler) initTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// 数据集预热：每天在指定时间点刷新一次，小时为负数时关闭
	hour, minute := s.cfg.Scheduler.DatasetHour, s.cfg.Scheduler.DatasetMinute
	if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
		s.tasks[TaskDatasetWarmup] = &TaskStatus{
			NextRun:     getNextTimePoint(now, hour, minute),
			Description: fmt.Sprintf("数据集预热 (%02d:%02d)", hour, minute),
		}
	} else {
		logger.Info("dataset warmup disabled", "hour", hour, "minute", minute)
	}

	sweep := secondsToDuration(s.cfg.Scheduler.SweepIntervalSec)
	s.tasks[TaskScratchSweep] = &TaskStatus{
		NextRun:     now.Add(sweep),
		Description: fmt.Sprintf("清理残留信封文件 (每%d秒)", s.cfg.Scheduler.SweepIntervalSec),
	}

	logger.Info("scheduled tasks initialized", "task_count", len(s.tasks))
}

// 主循环
func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(secondsToDuration(s.cfg.Scheduler.CheckIntervalSec))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			s.checkTasks(ctx, now)
		}
	}
}

// 检查任务
func (s *Scheduler) checkTasks(ctx context.Context, now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		if status.IsRunning || status.NextRun.IsZero() {
			continue
		}
		if !now.Before(status.NextRun) {
			status.IsRunning = true
			s.wg.Add(1)
			go func(t TaskType) {
				defer s.wg.Done()
				s.runTask(ctx, t, now)
			}(taskType)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(ctx context.Context, taskType TaskType, now time.Time) {
	var err error
	defer func() {
		metrics.RecordSchedulerTask(taskType.String(), err)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now

		// 更新下次运行时间
		switch taskType {
		case TaskDatasetWarmup:
			status.NextRun = getNextTimePoint(now.Add(time.Minute), s.cfg.Scheduler.DatasetHour, s.cfg.Scheduler.DatasetMinute)
		case TaskScratchSweep:
			status.NextRun = now.Add(secondsToDuration(s.cfg.Scheduler.SweepIntervalSec))
		}

		logger.Info("task finished", "task", taskType.String(), "next_run", status.NextRun.Format("2006-01-02 15:04:05"))
	}()

	logger.Info("task started", "task", taskType.String())

	switch taskType {
	case TaskDatasetWarmup:
		err = s.warmDataset(ctx)
	case TaskScratchSweep:
		var removed int
		removed, err = recommender.SweepEnvelopes(s.scratchDir, secondsToDuration(s.cfg.Scheduler.ScratchMaxAgeSec), now)
		if err == nil && removed > 0 {
			logger.Info("stale envelopes removed", "count", removed, "dir", s.scratchDir)
		}
	}
	if err != nil {
		logger.Error("task failed", "task", taskType.String(), "error", err)
	}
}

// warmDataset 在刷新锁内重新生成数据集，避免与请求路径的刷新交错
func (s *Scheduler) warmDataset(ctx context.Context) error {
	release, err := s.locker.Acquire(ctx, s.lockKey)
	if err != nil {
		return err
	}
	defer release()

	path, err := s.datasets.Refresh(ctx)
	if err != nil {
		return err
	}
	logger.Info("dataset warmed", "path", path)
	return nil
}

// Status 返回任务状态快照
func (s *Scheduler) Status() map[TaskType]TaskStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make(map[TaskType]TaskStatus, len(s.tasks))
	for k, v := range s.tasks {
		out[k] = *v
	}
	return out
}
