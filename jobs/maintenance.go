package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
)

// Task is one periodic housekeeping step. It returns how many rows or
// entries it touched.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// Runner drives a set of tasks on their own tickers until stopped.
type Runner struct {
	tasks  []Task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(tasks ...Task) *Runner {
	return &Runner{tasks: tasks}
}

// Start launches every task. Each runs once immediately, then per interval.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, task)
	}
	logger.L().Info("🚀 Maintenance jobs started", zap.Int("tasks", len(r.tasks)))
}

// Stop cancels all tasks and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	logger.L().Info("🛑 Maintenance jobs stopped")
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	runOnce(ctx, task)
	for {
		select {
		case <-ticker.C:
			runOnce(ctx, task)
		case <-ctx.Done():
			return
		}
	}
}

func runOnce(ctx context.Context, task Task) {
	n, err := task.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.L().Error("❌ Maintenance task failed", zap.String("task", task.Name), zap.Error(err))
		}
		return
	}
	if n > 0 {
		logger.L().Info("🧹 Maintenance task done", zap.String("task", task.Name), zap.Int64("affected", n))
	}
}
