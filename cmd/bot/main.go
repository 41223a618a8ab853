package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/student-helper-bot/internal/app"
	"github.com/Spok95/student-helper-bot/internal/config"
	"github.com/Spok95/student-helper-bot/internal/db"
	"github.com/Spok95/student-helper-bot/internal/jobs"
	"github.com/Spok95/student-helper-bot/internal/logging"
	"github.com/Spok95/student-helper-bot/internal/observability"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		observability.CaptureErr(err)
		logger.Error("bot stopped with error", zap.Error(err))
		flush()
		lg.Closer()
		os.Exit(1)
	}
	logger.Info("bot stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database, logger); err != nil {
		return err
	}
	store := db.NewStore(database)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	api.Debug = cfg.BotDebug
	logger.Info("authorized", zap.String("username", api.Self.UserName), zap.String("tz", cfg.Location.String()))

	svc := tasks.NewService(store, app.NewNotifier(api), logger, cfg.Location)
	bot := app.NewBot(api, svc, logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	runner := jobs.New(ctx, logger)
	runner.Every(cfg.ReminderInterval, "deadline_reminders", jobs.DeadlineReminders(svc, logger))
	runner.Every(time.Minute, "task_gauges", jobs.TaskGauges(store))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx, updates)
	})
	g.Go(func() error {
		return app.ServeHTTP(gctx, cfg.HTTPAddr, store, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		api.StopReceivingUpdates()
		return nil
	})

	err = g.Wait()
	stop()
	runner.Wait()
	return err
}
