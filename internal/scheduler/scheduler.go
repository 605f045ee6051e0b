package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task represents a scheduled task
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(context.Context) error
}

// Scheduler runs each task on its own ticker until stopped
type Scheduler struct {
	log     *zap.Logger
	tasks   []*Task
	running bool
	mutex   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:   log.Named("scheduler"),
		tasks: make([]*Task, 0),
	}
}

// AddTask adds a task to the scheduler. Tasks with a non-positive
// interval are ignored.
func (s *Scheduler) AddTask(name string, interval time.Duration, fn func(context.Context) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if interval <= 0 {
		s.log.Info("task disabled", zap.String("task", name))
		return
	}

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}

	s.log.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
}

// Stop cancels every task and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mutex.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// runTask runs a task at the specified interval
func (s *Scheduler) runTask(ctx context.Context, task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx, task)
		case <-ctx.Done():
			s.log.Debug("task stopped", zap.String("task", task.Name))
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context, task *Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	if err := task.Fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("task failed", zap.String("task", task.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Debug("task finished", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
}
