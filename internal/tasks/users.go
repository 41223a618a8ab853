package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/models"
)

var groupRe = regexp.MustCompile(`(?i)гр\.\s*([\p{L}\p{N}-]+)`)

// ParseGroup достаёт метку группы из строки вида «Иванов Иван гр. ИТ-1».
func ParseGroup(text string) (string, bool) {
	m := groupRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// RegisterUser регистрирует пользователя с ролью. Повторная регистрация роль не меняет.
func (s *Service) RegisterUser(ctx context.Context, chatID int64, role models.Role, fullName string) (*models.User, error) {
	if !role.Valid() {
		return nil, &FieldError{Field: "role", Reason: "Неизвестная роль"}
	}
	fullName = strings.Join(strings.Fields(fullName), " ")
	if fullName == "" || utf8.RuneCountInString(fullName) > 100 {
		return nil, &FieldError{Field: "full_name", Reason: "Введите ФИО (до 100 символов)"}
	}
	u := &models.User{TelegramID: chatID, Name: fullName, Role: role}
	if role == models.Student || role == models.Helper {
		group, ok := ParseGroup(fullName)
		if !ok {
			return nil, &FieldError{Field: "group", Reason: "Неверный формат. Укажите группу: Иванов Иван гр. ИТ-1"}
		}
		u.Group = &group
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	inserted, err := s.store.InsertUser(dctx, u)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if !inserted {
		return nil, ErrAlreadyRegistered
	}
	s.log.Info("user registered", zap.Int64("chat_id", chatID), zap.String("role", string(role)))
	return u, nil
}

// UserByChatID: пользователь по chat id или ErrNotFound.
func (s *Service) UserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	u, err := s.store.UserByTelegramID(dctx, chatID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", chatID, err)
	}
	return u, err
}
