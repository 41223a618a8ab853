package observability

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
)

const flushTimeout = 2 * time.Second

// InitSentry включает отправку ошибок, если задан DSN. Возвращает flush для defer в main.
func InitSentry(dsn, env, release string) (func(), error) {
	noop := func() {}
	if dsn == "" {
		return noop, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		AttachStacktrace: true,
		// отмена контекста при остановке бота не ошибка
		BeforeSend: func(ev *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
				return nil
			}
			return ev
		},
	})
	if err != nil {
		return noop, err
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

func CaptureErr(err error) {
	CaptureErrCtx(context.Background(), err)
}

// CaptureErrCtx отправляет ошибку с тегами чата, запроса и операции.
func CaptureErrCtx(ctx context.Context, err error) {
	if err == nil {
		return
	}
	tags := ctxutil.Fields(ctx)
	if len(tags) == 0 {
		sentry.CaptureException(err)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}
