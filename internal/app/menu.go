package app

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/models"
)

// Кнопки постоянного меню.
const (
	btnMenu = "Меню"

	btnCreateTask  = "📝 Создать задание"
	btnMyTasks     = "📋 Мои задания"
	btnLeaderboard = "🏆 Рейтинг помощников"

	btnOpenTasks = "🔍 Доступные задания"

	btnTeacherTasks    = "📋 Задания моих студентов"
	btnTeacherStudents = "👨‍🎓 Студенты"
	btnTeacherHelpers  = "👨‍🏫 Помощники"
	btnExport          = "📥 Экспорт заданий"
)

func isMenuButton(text string) bool {
	switch text {
	case btnMenu, btnCreateTask, btnMyTasks, btnLeaderboard, btnOpenTasks,
		btnTeacherTasks, btnTeacherStudents, btnTeacherHelpers, btnExport:
		return true
	}
	return false
}

// roleMenu: клавиатура главного меню для роли.
func roleMenu(role models.Role) tgbotapi.ReplyKeyboardMarkup {
	var kb tgbotapi.ReplyKeyboardMarkup
	switch role {
	case models.Student:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCreateTask)),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnMyTasks),
				tgbotapi.NewKeyboardButton(btnLeaderboard),
			),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMenu)),
		)
	case models.Helper:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnOpenTasks),
				tgbotapi.NewKeyboardButton(btnMyTasks),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnLeaderboard),
				tgbotapi.NewKeyboardButton(btnMenu),
			),
		)
	case models.Teacher:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnTeacherTasks)),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnTeacherStudents),
				tgbotapi.NewKeyboardButton(btnTeacherHelpers),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnExport),
				tgbotapi.NewKeyboardButton(btnMenu),
			),
		)
	default:
		return tgbotapi.NewReplyKeyboard()
	}
	kb.ResizeKeyboard = true
	return kb
}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", dialog.DataCancel),
	)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(cancelRow())
}

func roleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎓 Студент", dialog.PrefixRole+string(models.Student)),
			tgbotapi.NewInlineKeyboardButtonData("🤝 Помощник", dialog.PrefixRole+string(models.Helper)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍🏫 Преподаватель", dialog.PrefixRole+string(models.Teacher)),
		),
	)
}

// subjectKeyboard: по два предмета в ряд, затем «новый предмет» и отмена.
func subjectKeyboard(subjects []models.Subject) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range subjects {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s.Name, dialog.PrefixSubject+strconv.FormatInt(s.ID, 10)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Новый предмет", dialog.DataSubjectNew)),
		cancelRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// subjectFilterKeyboard: выбор предмета для списка доступных заданий.
func subjectFilterKeyboard(subjects []models.Subject) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📚 Все предметы", cbData(actOpen, 0))),
	}
	for _, s := range subjects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.Name, cbData(actOpen, s.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func attachmentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", dialog.DataSkip)),
		cancelRow(),
	)
}

func ratingKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for i := 1; i <= 5; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i)+"⭐", dialog.PrefixRateSet+strconv.Itoa(i)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row, cancelRow())
}

// taskKeyboard собирает действия с заданием для зрителя с этой ролью. nil, если кнопок нет.
func taskKeyboard(t models.Task, viewer models.Role, viewerChatID int64) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if t.Attachment != nil {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("📎 Вложение", cbData(actFile, t.ID)))
	}
	switch viewer {
	case models.Student:
		switch {
		case t.Status == models.StatusNew && t.StudentChatID == viewerChatID:
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", cbData(actDelete, t.ID)))
		case t.Status == models.StatusCompleted && t.Rating == nil && t.StudentChatID == viewerChatID:
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("⭐ Оценить", cbData(actRate, t.ID)))
		}
	case models.Helper:
		switch {
		case t.Status == models.StatusNew:
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ Взять", cbData(actClaim, t.ID)))
		case t.Status == models.StatusInProgress && t.HelperChatID != nil && *t.HelperChatID == viewerChatID:
			row = append(row,
				tgbotapi.NewInlineKeyboardButtonData("📤 Отправить решение", cbData(actSubmit, t.ID)),
				tgbotapi.NewInlineKeyboardButtonData("↩️ Отказаться", cbData(actAbandon, t.ID)),
			)
		}
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
