package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken         string
	BotDebug         bool
	DatabaseURL      string
	Location         *time.Location
	HTTPAddr         string
	LogLevel         string
	Env              string // dev|prod
	SentryDSN        string
	Release          string
	ReminderInterval time.Duration
}

// Load читает конфигурацию из окружения; .env подхватывается, если он есть.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tz := getenv("TZ", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	var errs []error
	token, err := requireEnv("BOT_TOKEN")
	errs = append(errs, err)
	dsn, err := requireEnv("DATABASE_URL")
	errs = append(errs, err)
	debug, err := parseBool("BOT_DEBUG", false)
	errs = append(errs, err)
	interval, err := parseDuration("REMINDER_INTERVAL", 10*time.Minute)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Config{
		BotToken:         token,
		BotDebug:         debug,
		DatabaseURL:      dsn,
		Location:         loc,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		Env:              getenv("ENV", "dev"),
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		Release:          getenv("RELEASE", "dev"),
		ReminderInterval: interval,
	}, nil
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("required env %s is empty", k)
	}
	return v, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func parseDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("%s: must be positive", k)
	}
	return d, nil
}
