package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/bulkcase/internal/ports/primary"
)

// Task names.
const (
	TaskCreateBulkBatch          = "create-bulk-batch"
	TaskRetryFailedScheduling    = "retry-failed-scheduling"
	TaskRetryFailedPronouncement = "retry-failed-pronouncement"
	TaskMigrateBulkCaseSchema    = "migrate-bulk-case-schema"
)

// ScheduledTask pairs a task with how often it runs. A non-positive
// interval disables the task.
type ScheduledTask struct {
	Task     primary.ReconciliationTask
	Interval time.Duration
}

// Scheduler runs each task on its own interval. Runs of one task never
// overlap.
type Scheduler struct {
	tasks  []ScheduledTask
	logger *zap.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(logger *zap.Logger, tasks ...ScheduledTask) *Scheduler {
	return &Scheduler{tasks: tasks, logger: logger}
}

// Run starts every enabled task immediately and then on its interval until
// ctx is cancelled. An in-flight run finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, st := range s.tasks {
		if st.Interval <= 0 {
			s.logger.Info("task disabled", zap.String("task", st.Task.Name()))
			continue
		}
		st := st
		g.Go(func() error {
			s.loop(gctx, st)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, st ScheduledTask) {
	ticker := time.NewTicker(st.Interval)
	defer ticker.Stop()

	s.logger.Info("task scheduled", zap.String("task", st.Task.Name()), zap.Duration("interval", st.Interval))
	s.runOnce(ctx, st.Task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, st.Task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task primary.ReconciliationTask) {
	start := time.Now()
	task.Run(ctx)
	s.logger.Debug("task run finished", zap.String("task", task.Name()), zap.Duration("took", time.Since(start)))
}

// FindTask returns the task called name.
func FindTask(tasks []ScheduledTask, name string) (primary.ReconciliationTask, error) {
	for _, st := range tasks {
		if st.Task.Name() == name {
			return st.Task, nil
		}
	}
	return nil, fmt.Errorf("unknown task %q", name)
}
