package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/observability"
)

type Job func(ctx context.Context) error

// Runner запускает периодические задачи, привязанные к контексту процесса.
type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

// Every выполняет fn раз в interval, пока жив контекст. Паника в fn считается ошибкой
// запуска и уходит в Sentry; следующий тик выполняется как обычно.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.runOnce(name, fn)
			}
		}
	}()
}

// Wait ждёт остановки всех задач после отмены контекста.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) runOnce(name string, fn Job) {
	ctx := ctxutil.WithOp(r.ctx, "job:"+name)
	log := ctxutil.Logger(ctx, r.log)
	start := time.Now()
	defer func() {
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			err := fmt.Errorf("panic in job %s: %v", name, rec)
			log.Error("job panicked", zap.Error(err))
			observability.CaptureErrCtx(ctx, err)
		}
	}()

	if err := fn(ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		log.Warn("job failed", zap.Error(err))
		observability.CaptureErrCtx(ctx, err)
	}
}
