package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "student-helper-bot"

type Log struct {
	Base   *zap.Logger
	Level  zap.AtomicLevel
	Closer func()
}

// Init: JSON в prod, цветная консоль в dev. Пакет log тоже пишет в zap,
// так что вывод telegram-bot-api попадает в общий лог.
func Init(level, env string) (*Log, error) {
	lvl := zap.NewAtomicLevelAt(ParseLevel(level))

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if isProd(env) {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	base = base.With(zap.String("service", ServiceName), zap.String("env", env))
	restore := zap.RedirectStdLog(base.Named("stdlog"))

	return &Log{
		Base:  base,
		Level: lvl,
		Closer: func() {
			restore()
			_ = base.Sync()
		},
	}, nil
}

// ParseLevel понимает debug/info/warn/error; остальное считается info.
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func isProd(env string) bool {
	switch strings.ToLower(env) {
	case "prod", "production":
		return true
	}
	return false
}
