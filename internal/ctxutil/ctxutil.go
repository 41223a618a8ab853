package ctxutil

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type key int

const (
	keyChatID key = iota
	keyRequestID
	keyOp
)

var (
	DefaultDBTimeout     = 5 * time.Second
	DefaultUpdateTimeout = 30 * time.Second
)

// WithUpdate помечает контекст одного апдейта: чат и свежий request_id.
func WithUpdate(ctx context.Context, chatID int64) context.Context {
	ctx = context.WithValue(ctx, keyChatID, chatID)
	return context.WithValue(ctx, keyRequestID, uuid.NewString())
}

// WithOp задаёт имя операции: фоновой задачи или шага движка.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, keyOp, op)
}

func ChatID(ctx context.Context) (int64, bool)    { return value[int64](ctx, keyChatID) }
func RequestID(ctx context.Context) (string, bool) { return value[string](ctx, keyRequestID) }
func Op(ctx context.Context) (string, bool)        { return value[string](ctx, keyOp) }

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// Fields: теги Sentry из контекста.
func Fields(ctx context.Context) map[string]string {
	out := make(map[string]string, 3)
	if id, ok := ChatID(ctx); ok {
		out["chat_id"] = strconv.FormatInt(id, 10)
	}
	if rid, ok := RequestID(ctx); ok {
		out["request_id"] = rid
	}
	if op, ok := Op(ctx); ok {
		out["op"] = op
	}
	return out
}

// Logger добавляет к base поля из контекста.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if id, ok := ChatID(ctx); ok {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	if rid, ok := RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	if op, ok := Op(ctx); ok {
		fields = append(fields, zap.String("op", op))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout ограничивает запрос DefaultDBTimeout, но не дольше дедлайна родителя.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	d := DefaultDBTimeout
	if dl, ok := parent.Deadline(); ok {
		d = min(d, time.Until(dl))
	}
	return context.WithTimeout(parent, d)
}
