package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(logTasks)
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func logTasks(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		attrs := []any{"type", t.Type(), "duration_ms", time.Since(start).Milliseconds()}
		if id, ok := asynq.GetTaskID(ctx); ok {
			attrs = append(attrs, "task_id", id)
		}
		if err != nil {
			slog.Error("task failed", append(attrs, "error", err)...)
			return err
		}
		slog.Info("task done", attrs...)
		return nil
	})
}

// Schedules lists the periodic tasks run by the worker.
var Schedules = []struct {
	Cron string
	Type string
	Opts []asynq.Option
}{
	{Cron: "0 3 1 * *", Type: TypeInvoiceMonthly, Opts: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(2)}},
	{Cron: "@every 1h", Type: TypeCalendarRefresh, Opts: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(1)}},
}

// RegisterSchedules adds every periodic task to the scheduler.
func RegisterSchedules(s *asynq.Scheduler) error {
	for _, sch := range Schedules {
		if _, err := s.Register(sch.Cron, asynq.NewTask(sch.Type, nil), sch.Opts...); err != nil {
			return err
		}
	}
	return nil
}
