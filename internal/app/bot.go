package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/metrics"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/observability"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/tg"
)

// Bot переводит апдейты Telegram в dialog.Input и вызовы tasks.Service.
type Bot struct {
	api      tg.API
	svc      *tasks.Service
	sessions *dialog.Registry
	limiter  *ChatLimiter
	log      *zap.Logger
}

func NewBot(api tg.API, svc *tasks.Service, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:      api,
		svc:      svc,
		sessions: dialog.NewRegistry(),
		limiter:  NewChatLimiter(),
		log:      log,
	}
}

// Run обрабатывает апдейты, пока не закроется канал или не отменят ctx.
// Каждый апдейт в своей горутине; один чат обрабатывается последовательно.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, upd)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	chatID, in, cbID, ok := inputFrom(upd)
	if !ok {
		return
	}
	metrics.BotUpdates.Inc()

	unlock := b.limiter.Lock(chatID)
	defer unlock()

	ctx = ctxutil.WithUpdate(ctx, chatID)
	ctx, cancel := ctxutil.WithTimeout(ctx, ctxutil.DefaultUpdateTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.fail(ctx, chatID, fmt.Errorf("panic while handling update: %v", r))
		}
	}()

	if cbID != "" {
		if _, err := tg.Request(b.api, tgbotapi.NewCallback(cbID, "")); err != nil {
			metrics.HandlerErrors.Inc()
		}
	}
	if err := b.route(ctx, chatID, in); err != nil {
		b.fail(ctx, chatID, err)
	}
}

// inputFrom приводит апдейт к dialog.Input. Для фото берём самый крупный размер.
func inputFrom(upd tgbotapi.Update) (chatID int64, in dialog.Input, callbackID string, ok bool) {
	switch {
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			return 0, dialog.Input{}, "", false
		}
		return cb.Message.Chat.ID, dialog.Callback(cb.Data), cb.ID, true

	case upd.Message != nil && upd.Message.Chat != nil:
		m := upd.Message
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		var file *models.FileRef
		switch {
		case len(m.Photo) > 0:
			p := m.Photo[len(m.Photo)-1]
			file = &models.FileRef{ID: p.FileID, Kind: models.FilePhoto}
		case m.Document != nil:
			file = &models.FileRef{ID: m.Document.FileID, Name: m.Document.FileName, Kind: models.FileDocument}
		}
		return m.Chat.ID, dialog.Message(text, file), "", true
	}
	return 0, dialog.Input{}, "", false
}

// fail: ожидаемый отказ показываем текстом, остальное логируем, шлём в Sentry и извиняемся.
func (b *Bot) fail(ctx context.Context, chatID int64, err error) {
	if tasks.IsRefusal(err) {
		b.send(ctx, chatID, tasks.Refusal(err), nil)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	metrics.HandlerErrors.Inc()
	ctxutil.Logger(ctx, b.log).Error("update failed", zap.Error(err))
	observability.CaptureErrCtx(ctx, err)
	b.send(ctx, chatID, tasks.Refusal(err), nil)
}

// send: текст с необязательной клавиатурой. Ошибки Telegram только логируем.
func (b *Bot) send(ctx context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := tg.Send(b.api, msg)
	switch {
	case err == nil:
	case tg.IsUnreachable(err):
		ctxutil.Logger(ctx, b.log).Debug("chat unreachable", zap.Error(err))
	default:
		metrics.HandlerErrors.Inc()
		ctxutil.Logger(ctx, b.log).Warn("send failed", zap.Error(err))
	}
}

func (b *Bot) sendReply(ctx context.Context, chatID int64, r dialog.Reply) error {
	if r.Text == "" {
		return nil
	}
	var markup any
	switch r.Ask {
	case dialog.AskSubject:
		subjects, err := b.svc.Subjects(ctx)
		if err != nil {
			return err
		}
		markup = subjectKeyboard(subjects)
	case dialog.AskAttachment:
		markup = attachmentKeyboard()
	case dialog.AskRole:
		markup = roleKeyboard()
	case dialog.AskRating:
		markup = ratingKeyboard()
	default:
		markup = cancelKeyboard()
	}
	b.send(ctx, chatID, r.Text, markup)
	return nil
}
