package tg

import (
	"errors"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/student-helper-bot/internal/observability"
)

// API: часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// isSystemErr: 429, 5xx и сетевые таймауты. Ошибки валидации Telegram в Sentry не идут.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	s := err.Error()
	if strings.Contains(s, "Bad Request") || strings.Contains(s, "Forbidden") {
		return false
	}
	for _, marker := range []string{"429", "502", "503", "timeout"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// IsUnreachable: пользователь заблокировал бота или чат удалён. Повтор не поможет.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "bot was blocked by the user") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "user is deactivated")
}

func Send(bot API, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	capture(err)
	return m, err
}

func Request(bot API, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	capture(err)
	return r, err
}

func capture(err error) {
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
}
