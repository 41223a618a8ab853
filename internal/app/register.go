package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

// start: зарегистрированным показываем меню, остальным выбор роли.
func (b *Bot) start(ctx context.Context, chatID int64) error {
	b.sessions.Cancel(chatID)
	u, err := b.svc.UserByChatID(ctx, chatID)
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		return b.startSession(ctx, chatID, dialog.NewRegisterSession())
	case err != nil:
		return err
	}
	b.send(ctx, chatID, fmt.Sprintf("С возвращением, %s! Выберите действие:", u.Name), roleMenu(u.Role))
	return nil
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, s *dialog.RegisterSession) error {
	u, err := b.svc.RegisterUser(ctx, chatID, s.Role(), s.FullName())
	var fe *tasks.FieldError
	switch {
	case errors.As(err, &fe):
		// даём ввести ФИО ещё раз, роль уже выбрана
		b.sessions.Start(chatID, s)
		return b.sendReply(ctx, chatID, s.Retry("❌ "+fe.Reason))
	case errors.Is(err, tasks.ErrAlreadyRegistered):
		return b.showMenu(ctx, chatID, tasks.Refusal(err))
	case err != nil:
		return err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Регистрация завершена, %s! Выберите действие:", u.Name), roleMenu(u.Role))
	return nil
}
