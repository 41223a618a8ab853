package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/metrics"
	"github.com/Spok95/student-helper-bot/internal/models"
)

// Reminder: то, что умеет tasks.Service.
type Reminder interface {
	SendDeadlineReminders(ctx context.Context) (int, error)
}

// TaskCounter: источник числа заданий по статусам (db.Store).
type TaskCounter interface {
	TaskCounts(ctx context.Context) (map[string]int, error)
}

// DeadlineReminders: напоминания помощнику и студенту за день до срока.
func DeadlineReminders(svc Reminder, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithTimeout(ctx, time.Minute)
		defer cancel()
		n, err := svc.SendDeadlineReminders(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("deadline reminders sent", zap.Int("tasks", n))
		}
		return nil
	}
}

// TaskGauges обновляет helperbot_tasks{status}.
func TaskGauges(counter TaskCounter) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		counts, err := counter.TaskCounts(ctx)
		if err != nil {
			return err
		}
		metrics.SetTaskCounts(counts,
			string(models.StatusNew), string(models.StatusInProgress), string(models.StatusCompleted))
		return nil
	}
}
