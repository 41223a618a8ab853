package app

import (
	"context"
	"fmt"

	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/metrics"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/tg"
)

const maxListed = 20

func (b *Bot) finishCreateTask(ctx context.Context, chatID int64, s *dialog.CreateTaskSession) error {
	in := s.Task()
	if _, err := b.svc.CreateTask(ctx, chatID, in); err != nil {
		return err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Задание «%s» создано! Помощники увидят его в списке доступных.", in.Title),
		roleMenu(models.Student))
	return nil
}

// sendTaskList: по сообщению на задание, с кнопками для роли зрителя.
func (b *Bot) sendTaskList(ctx context.Context, chatID int64, list []models.Task, viewer models.Role, header, empty string) {
	if len(list) == 0 {
		b.send(ctx, chatID, empty, nil)
		return
	}
	if len(list) > maxListed {
		header += fmt.Sprintf(" (показаны первые %d из %d)", maxListed, len(list))
		list = list[:maxListed]
	}
	b.send(ctx, chatID, header, nil)
	for _, t := range list {
		var markup any
		if kb := taskKeyboard(t, viewer, chatID); kb != nil {
			markup = kb
		}
		b.send(ctx, chatID, taskCard(t), markup)
	}
}

func (b *Bot) studentTasks(ctx context.Context, chatID int64) error {
	list, err := b.svc.StudentTasks(ctx, chatID)
	if err != nil {
		return err
	}
	b.sendTaskList(ctx, chatID, list, models.Student, "📋 Ваши задания:", "У вас пока нет заданий. Нажмите «"+btnCreateTask+"».")
	return nil
}

func (b *Bot) deleteTask(ctx context.Context, chatID, taskID int64) error {
	if err := b.svc.DeleteTask(ctx, taskID, chatID); err != nil {
		return err
	}
	b.send(ctx, chatID, "🗑 Задание удалено.", nil)
	return nil
}

// startRate проверяет право оценить до показа кнопок; окончательная проверка в RateTask.
func (b *Bot) startRate(ctx context.Context, chatID, taskID int64) error {
	t, err := b.svc.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if t.StudentChatID != chatID {
		return tasks.ErrNotOwnedByCaller
	}
	if t.Status != models.StatusCompleted || t.Rating != nil {
		return tasks.ErrInvalidState
	}
	return b.startSession(ctx, chatID, dialog.NewRateSession(taskID))
}

func (b *Bot) finishRate(ctx context.Context, chatID int64, s *dialog.RateSession) error {
	if err := b.svc.RateTask(ctx, s.TaskID, chatID, s.Rating()); err != nil {
		return err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Спасибо! Оценка %d⭐ сохранена.", s.Rating()), nil)
	return nil
}

func (b *Bot) leaderboard(ctx context.Context, chatID int64) error {
	helpers, err := b.svc.HelperLeaderboard(ctx)
	if err != nil {
		return err
	}
	b.send(ctx, chatID, leaderboardText(helpers), nil)
	return nil
}

// sendAttachment: вложение задания любому зарегистрированному пользователю.
func (b *Bot) sendAttachment(ctx context.Context, chatID, taskID int64) error {
	u, err := b.user(ctx, chatID)
	if u == nil || err != nil {
		return err
	}
	t, err := b.svc.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Attachment == nil {
		b.send(ctx, chatID, "У задания нет вложения.", nil)
		return nil
	}
	if _, err := tg.Send(b.api, fileMessage(chatID, *t.Attachment, "📎 "+t.Title)); err != nil {
		metrics.HandlerErrors.Inc()
		return fmt.Errorf("send attachment: %w", err)
	}
	return nil
}
