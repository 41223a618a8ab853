package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/student-helper-bot/internal/export"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/tg"
)

// telegram ограничивает сообщение 4096 символами
const messageLimit = 4000

func (b *Bot) teacherTasks(ctx context.Context, chatID int64) error {
	list, err := b.svc.TeacherTasks(ctx, chatID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		b.send(ctx, chatID, "Заданий с вашим ФИО пока нет.", nil)
		return nil
	}
	lines := make([]string, 0, len(list))
	for _, t := range list {
		lines = append(lines, teacherTaskLine(t))
	}
	for _, chunk := range chunkLines(fmt.Sprintf("📋 Задания ваших студентов (%d):\n", len(list)), lines, messageLimit) {
		b.send(ctx, chatID, chunk, nil)
	}
	return nil
}

func (b *Bot) teacherStudents(ctx context.Context, chatID int64) error {
	users, err := b.svc.TeacherStudents(ctx, chatID)
	if err != nil {
		return err
	}
	b.send(ctx, chatID, usersText("👨‍🎓 Студенты, указавшие вас преподавателем:", users), nil)
	return nil
}

func (b *Bot) teacherHelpers(ctx context.Context, chatID int64) error {
	users, err := b.svc.TeacherHelpers(ctx, chatID)
	if err != nil {
		return err
	}
	b.send(ctx, chatID, usersText("👨‍🏫 Помощники по вашим заданиям:", users), nil)
	return nil
}

// exportTasks: XLSX с заданиями преподавателя, отправляется документом.
func (b *Bot) exportTasks(ctx context.Context, chatID int64, u *models.User) error {
	if u.Role != models.Teacher {
		return tasks.ErrInvalidCaller
	}
	list, err := b.svc.TeacherTasks(ctx, chatID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		b.send(ctx, chatID, "Заданий с вашим ФИО пока нет, выгружать нечего.", nil)
		return nil
	}

	loc := b.svc.Location()
	f, err := export.TasksWorkbook(list, loc)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	path, err := export.SaveTemp(f, export.TasksFilename(u.Name, b.svc.Now().In(loc)))
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(path)) }()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📥 Задания: %d", len(list))
	if _, err := tg.Send(b.api, doc); err != nil {
		return fmt.Errorf("send export: %w", err)
	}
	return nil
}
