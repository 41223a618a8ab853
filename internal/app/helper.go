package app

import (
	"context"
	"fmt"

	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

func (b *Bot) chooseOpenSubject(ctx context.Context, chatID int64) error {
	subjects, err := b.svc.Subjects(ctx)
	if err != nil {
		return err
	}
	b.send(ctx, chatID, "🔍 Выберите предмет:", subjectFilterKeyboard(subjects))
	return nil
}

// openTasks показывает задания в статусе new. subjectID 0 означает все предметы.
func (b *Bot) openTasks(ctx context.Context, chatID, subjectID int64) error {
	u, err := b.user(ctx, chatID)
	if u == nil || err != nil {
		return err
	}
	if u.Role != models.Helper {
		return tasks.ErrInvalidCaller
	}
	var filter *int64
	if subjectID != 0 {
		filter = &subjectID
	}
	list, err := b.svc.ListOpenTasks(ctx, filter)
	if err != nil {
		return err
	}
	b.sendTaskList(ctx, chatID, list, models.Helper, "🔍 Доступные задания:", "Сейчас нет доступных заданий.")
	return nil
}

func (b *Bot) claim(ctx context.Context, chatID, taskID int64) error {
	if err := b.svc.ClaimTask(ctx, taskID, chatID); err != nil {
		return err
	}
	t, err := b.svc.Task(ctx, taskID)
	if err != nil {
		return err
	}
	var markup any
	if kb := taskKeyboard(*t, models.Helper, chatID); kb != nil {
		markup = kb
	}
	b.send(ctx, chatID, "✅ Вы взяли задание!\n\n"+taskCard(*t), markup)
	if shorten(t.Description, cardDescriptionLimit) != t.Description {
		for _, chunk := range splitText("📝 Полное описание:", t.Description, messageLimit) {
			b.send(ctx, chatID, chunk, nil)
		}
	}
	return nil
}

func (b *Bot) abandon(ctx context.Context, chatID, taskID int64) error {
	if err := b.svc.AbandonTask(ctx, taskID, chatID); err != nil {
		return err
	}
	b.send(ctx, chatID, "↩️ Вы отказались от задания. Оно снова доступно другим помощникам.", nil)
	return nil
}

// startSolution проверяет, что задание в работе у этого помощника, до ввода решения.
func (b *Bot) startSolution(ctx context.Context, chatID, taskID int64) error {
	t, err := b.svc.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusInProgress || t.HelperChatID == nil || *t.HelperChatID != chatID {
		return tasks.ErrNotOwnedByCaller
	}
	return b.startSession(ctx, chatID, dialog.NewSolutionSession(taskID))
}

func (b *Bot) finishSolution(ctx context.Context, chatID int64, s *dialog.SolutionSession) error {
	if err := b.svc.SubmitSolution(ctx, s.TaskID, chatID, s.Solution()); err != nil {
		return err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Решение отправлено студенту! Задание №%d выполнено.", s.TaskID), roleMenu(models.Helper))
	return nil
}

func (b *Bot) helperTasks(ctx context.Context, chatID int64) error {
	list, err := b.svc.HelperTasks(ctx, chatID)
	if err != nil {
		return err
	}
	b.sendTaskList(ctx, chatID, list, models.Helper, "📋 Ваши задания:", "Вы ещё не взяли ни одного задания. Нажмите «"+btnOpenTasks+"».")
	return nil
}
