package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/tg"
)

// Notifier доставляет события движка в Telegram.
type Notifier struct {
	api tg.API
}

func NewNotifier(api tg.API) *Notifier { return &Notifier{api: api} }

var _ tasks.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(ctx context.Context, chatID int64, ev tasks.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, eventText(chatID, ev))
	if ev.Kind == tasks.EventSolved && ev.Task.Rating == nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Оценить решение", cbData(actRate, ev.Task.ID)),
		))
	}
	if _, err := tg.Send(n.api, msg); err != nil {
		return fmt.Errorf("notify %s: %w", ev.Kind, err)
	}
	if ev.Kind != tasks.EventSolved || ev.Solution == nil {
		return nil
	}
	// текст решения отдельно, кусками не длиннее messageLimit
	if ev.Solution.Text != "" {
		for _, chunk := range splitText("✍️ Решение:", ev.Solution.Text, messageLimit) {
			if _, err := tg.Send(n.api, tgbotapi.NewMessage(chatID, chunk)); err != nil {
				return fmt.Errorf("notify %s text: %w", ev.Kind, err)
			}
		}
	}
	if ev.Solution.File != nil {
		if _, err := tg.Send(n.api, fileMessage(chatID, *ev.Solution.File, "📎 Файл решения")); err != nil {
			return fmt.Errorf("notify %s file: %w", ev.Kind, err)
		}
	}
	return nil
}

func eventText(chatID int64, ev tasks.Event) string {
	t := ev.Task
	switch ev.Kind {
	case tasks.EventClaimed:
		return fmt.Sprintf("✅ Ваше задание «%s» взял помощник %s.", t.Title, ev.HelperName)
	case tasks.EventAbandoned:
		return fmt.Sprintf("↩️ Помощник %s отказался от задания «%s». Оно снова доступно другим помощникам.", ev.HelperName, t.Title)
	case tasks.EventSolved:
		return fmt.Sprintf("🎉 Задание «%s» решено! Помощник: %s.", t.Title, ev.HelperName)
	case tasks.EventDeadlineSoon:
		if t.HelperChatID != nil && *t.HelperChatID == chatID {
			return fmt.Sprintf("⏰ Завтра (%s) срок сдачи задания «%s», которое вы взяли.", t.Deadline.Format(dateLayout), t.Title)
		}
		return fmt.Sprintf("⏰ Завтра (%s) срок сдачи задания «%s». Помощник: %s.", t.Deadline.Format(dateLayout), t.Title, ev.HelperName)
	}
	return fmt.Sprintf("Обновление по заданию «%s».", t.Title)
}

// fileMessage пересылает файл Telegram по его file_id.
func fileMessage(chatID int64, f models.FileRef, caption string) tgbotapi.Chattable {
	if f.Kind == models.FilePhoto {
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(f.ID))
		p.Caption = caption
		return p
	}
	d := tgbotapi.NewDocument(chatID, tgbotapi.FileID(f.ID))
	d.Caption = caption
	return d
}
