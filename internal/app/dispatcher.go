package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

func isCommand(text, cmd string) bool {
	text = strings.TrimSpace(text)
	if text == cmd {
		return true
	}
	// /start@helper_bot в группах
	return strings.HasPrefix(text, cmd+"@")
}

func (b *Bot) route(ctx context.Context, chatID int64, in dialog.Input) error {
	if in.IsCancel() {
		return b.cancel(ctx, chatID)
	}
	if in.Kind == dialog.KindMessage {
		switch {
		case isCommand(in.Text, "/start"):
			return b.start(ctx, chatID)
		case isCommand(in.Text, "/menu"), strings.TrimSpace(in.Text) == btnMenu:
			b.sessions.Cancel(chatID)
			return b.showMenu(ctx, chatID, "Главное меню:")
		}
	}

	if s, ok := b.sessions.Get(chatID); ok {
		if belongsTo(s, in) {
			return b.continueSession(ctx, chatID, s, in)
		}
		// новое действие из меню прерывает незаконченный диалог
		b.sessions.Finish(chatID, s)
		ctxutil.Logger(ctx, b.log).Debug("session interrupted", zap.String("session", s.Name()))
	}

	if in.Kind == dialog.KindCallback {
		return b.routeCallback(ctx, chatID, in.Data)
	}
	return b.routeMenu(ctx, chatID, strings.TrimSpace(in.Text))
}

// belongsTo: ход относится к активному диалогу, а не к меню или чужим кнопкам.
func belongsTo(s dialog.Session, in dialog.Input) bool {
	if in.Kind == dialog.KindMessage {
		return !isMenuButton(strings.TrimSpace(in.Text))
	}
	switch s.(type) {
	case *dialog.CreateTaskSession:
		return strings.HasPrefix(in.Data, dialog.PrefixSubject) || in.Data == dialog.DataSkip
	case *dialog.RegisterSession:
		return strings.HasPrefix(in.Data, dialog.PrefixRole)
	case *dialog.RateSession:
		return strings.HasPrefix(in.Data, dialog.PrefixRateSet)
	}
	return false
}

func (b *Bot) cancel(ctx context.Context, chatID int64) error {
	if !b.sessions.Cancel(chatID) {
		return b.showMenu(ctx, chatID, "Нечего отменять.")
	}
	return b.showMenu(ctx, chatID, "❌ Действие отменено.")
}

func (b *Bot) continueSession(ctx context.Context, chatID int64, s dialog.Session, in dialog.Input) error {
	reply, done := s.Handle(in)
	if !done {
		return b.sendReply(ctx, chatID, reply)
	}
	b.sessions.Finish(chatID, s)

	switch s := s.(type) {
	case *dialog.CreateTaskSession:
		return b.finishCreateTask(ctx, chatID, s)
	case *dialog.SolutionSession:
		return b.finishSolution(ctx, chatID, s)
	case *dialog.RegisterSession:
		return b.finishRegister(ctx, chatID, s)
	case *dialog.RateSession:
		return b.finishRate(ctx, chatID, s)
	}
	return nil
}

// startSession заменяет текущий диалог и показывает его первый вопрос.
func (b *Bot) startSession(ctx context.Context, chatID int64, s dialog.Session) error {
	b.sessions.Start(chatID, s)
	ctxutil.Logger(ctx, b.log).Debug("session started", zap.String("session", s.Name()))
	return b.sendReply(ctx, chatID, s.Intro())
}

// user: зарегистрированный пользователь; иначе просим пройти /start.
func (b *Bot) user(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := b.svc.UserByChatID(ctx, chatID)
	if errors.Is(err, tasks.ErrNotFound) {
		b.send(ctx, chatID, "⚠️ Вы не зарегистрированы. Нажмите /start для начала.", nil)
		return nil, nil
	}
	return u, err
}

func (b *Bot) showMenu(ctx context.Context, chatID int64, text string) error {
	u, err := b.user(ctx, chatID)
	if u == nil || err != nil {
		return err
	}
	b.send(ctx, chatID, text, roleMenu(u.Role))
	return nil
}

func (b *Bot) routeMenu(ctx context.Context, chatID int64, text string) error {
	u, err := b.user(ctx, chatID)
	if u == nil || err != nil {
		return err
	}
	switch text {
	case btnCreateTask:
		if u.Role != models.Student {
			return tasks.ErrInvalidCaller
		}
		return b.startSession(ctx, chatID, dialog.NewCreateTaskSession(b.svc.Location(), b.svc.ValidateDeadline))
	case btnMyTasks:
		if u.Role == models.Helper {
			return b.helperTasks(ctx, chatID)
		}
		return b.studentTasks(ctx, chatID)
	case btnLeaderboard:
		return b.leaderboard(ctx, chatID)
	case btnOpenTasks:
		if u.Role != models.Helper {
			return tasks.ErrInvalidCaller
		}
		return b.chooseOpenSubject(ctx, chatID)
	case btnTeacherTasks:
		return b.teacherTasks(ctx, chatID)
	case btnTeacherStudents:
		return b.teacherStudents(ctx, chatID)
	case btnTeacherHelpers:
		return b.teacherHelpers(ctx, chatID)
	case btnExport:
		return b.exportTasks(ctx, chatID, u)
	}
	b.send(ctx, chatID, "⚠️ Неизвестная команда. Используйте /menu", roleMenu(u.Role))
	return nil
}

func (b *Bot) routeCallback(ctx context.Context, chatID int64, data string) error {
	action, id, ok := parseCallback(data)
	if !ok {
		b.send(ctx, chatID, "⚠️ Кнопка устарела. Используйте /menu", nil)
		return nil
	}
	switch action {
	case actClaim:
		return b.claim(ctx, chatID, id)
	case actAbandon:
		return b.abandon(ctx, chatID, id)
	case actSubmit:
		return b.startSolution(ctx, chatID, id)
	case actDelete:
		return b.deleteTask(ctx, chatID, id)
	case actRate:
		return b.startRate(ctx, chatID, id)
	case actFile:
		return b.sendAttachment(ctx, chatID, id)
	case actOpen:
		return b.openTasks(ctx, chatID, id)
	}
	b.send(ctx, chatID, "⚠️ Кнопка устарела. Используйте /menu", nil)
	return nil
}
