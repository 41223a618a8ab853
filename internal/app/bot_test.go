package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Spok95/student-helper-bot/internal/dialog"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/tasks/taskstest"
)

const (
	studentChat int64 = 11
	helperChat  int64 = 22
)

// fakeAPI запоминает всё, что бот отправил.
type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// messages: текстовые сообщения в чат по порядку.
func (f *fakeAPI) messages(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) last(t *testing.T, chatID int64) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages(chatID)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type botFixture struct {
	bot *Bot
	api *fakeAPI
	svc *tasks.Service
	ctx context.Context
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	api := &fakeAPI{}
	loc := time.FixedZone("MSK", 3*60*60)
	svc := tasks.NewService(taskstest.NewMemStore(), NewNotifier(api), nil, loc,
		tasks.WithClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, loc) }))
	return &botFixture{bot: NewBot(api, svc, nil), api: api, svc: svc, ctx: context.Background()}
}

func (f *botFixture) text(chatID int64, text string) {
	f.bot.HandleUpdate(f.ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}})
}

func (f *botFixture) press(chatID int64, data string) {
	f.bot.HandleUpdate(f.ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}})
}

func (f *botFixture) register(t *testing.T, chatID int64, role models.Role, name string) {
	t.Helper()
	f.text(chatID, "/start")
	assert.Equal(t, roleKeyboard(), f.api.last(t, chatID).ReplyMarkup)
	f.press(chatID, dialog.PrefixRole+string(role))
	f.text(chatID, name)
	require.Contains(t, f.api.last(t, chatID).Text, "Регистрация завершена")
}

func TestBot_FullTaskLifecycle(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")
	f.register(t, helperChat, models.Helper, "Сидоров Сидор гр. ИТ-2")

	f.text(studentChat, btnCreateTask)
	f.text(studentChat, "Интегралы")
	f.text(studentChat, "Решить номера 1-5")
	f.text(studentChat, "Математика")
	f.text(studentChat, "Иванов И.И.")
	f.text(studentChat, "15.03.2026")
	f.press(studentChat, dialog.DataSkip)
	require.Contains(t, f.api.last(t, studentChat).Text, "создано")

	list, err := f.svc.StudentTasks(f.ctx, studentChat)
	require.NoError(t, err)
	require.Len(t, list, 1)
	taskID := list[0].ID

	f.text(helperChat, btnOpenTasks)
	f.press(helperChat, cbData(actOpen, 0))
	card := f.api.last(t, helperChat)
	assert.Contains(t, card.Text, "Интегралы")
	assert.Equal(t, taskKeyboard(list[0], models.Helper, helperChat), card.ReplyMarkup)

	f.press(helperChat, cbData(actClaim, taskID))
	assert.Contains(t, f.api.last(t, helperChat).Text, "Вы взяли задание")
	assert.Contains(t, f.api.last(t, studentChat).Text, "взял помощник Сидоров")

	f.press(helperChat, cbData(actSubmit, taskID))
	f.text(helperChat, "Ответ: 42")
	assert.Contains(t, f.api.last(t, helperChat).Text, "Решение отправлено")
	studentMsgs := f.api.messages(studentChat)
	require.GreaterOrEqual(t, len(studentMsgs), 2)
	solved := studentMsgs[len(studentMsgs)-2]
	assert.Contains(t, solved.Text, "решено")
	require.NotNil(t, solved.ReplyMarkup)
	assert.Equal(t, "✍️ Решение:\nОтвет: 42", f.api.last(t, studentChat).Text)

	f.press(studentChat, cbData(actRate, taskID))
	f.press(studentChat, dialog.PrefixRateSet+"5")
	assert.Contains(t, f.api.last(t, studentChat).Text, "Оценка 5⭐ сохранена")

	helper, err := f.svc.UserByChatID(f.ctx, helperChat)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, helper.Rating, 1e-9)
	assert.Equal(t, 1, helper.CompletedTasks)

	// повторная оценка отклоняется ещё до выбора звёзд
	f.press(studentChat, cbData(actRate, taskID))
	assert.Equal(t, tasks.Refusal(tasks.ErrInvalidState), f.api.last(t, studentChat).Text)
	assert.Zero(t, f.bot.sessions.Len())
}

func TestBot_ClaimSendsFullLongDescription(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")
	f.register(t, helperChat, models.Helper, "Сидоров Сидор гр. ИТ-2")

	desc := strings.Repeat("условие ", 600)
	taskID, err := f.svc.CreateTask(f.ctx, studentChat, tasks.NewTask{
		Title:       "Большая задача",
		Description: desc,
		Subject:     tasks.SubjectRef{Name: "Физика"},
		TeacherName: "Иванов И.И.",
		Deadline:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	before := len(f.api.messages(helperChat))
	f.press(helperChat, cbData(actClaim, taskID))
	msgs := f.api.messages(helperChat)[before:]
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Contains(t, msgs[0].Text, "Вы взяли задание")
	assert.Contains(t, msgs[0].Text, "…")
	assert.Equal(t, "📝 Полное описание:", msgs[1].Text)
	var got strings.Builder
	for _, m := range msgs[2:] {
		assert.LessOrEqual(t, len(m.Text), messageLimit)
		got.WriteString(m.Text)
	}
	assert.Equal(t, strings.TrimSpace(desc), got.String())
}

func TestBot_LogsSessionName(t *testing.T) {
	f := newBotFixture(t)
	core, logs := observer.New(zap.DebugLevel)
	f.bot = NewBot(f.api, f.svc, zap.New(core))
	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")

	f.text(studentChat, btnCreateTask)
	f.text(studentChat, btnMyTasks)

	started := logs.FilterMessage("session started").All()
	require.Len(t, started, 2)
	assert.Equal(t, "register", started[0].ContextMap()["session"])
	assert.Equal(t, "create_task", started[1].ContextMap()["session"])

	interrupted := logs.FilterMessage("session interrupted").All()
	require.Len(t, interrupted, 1)
	assert.Equal(t, "create_task", interrupted[0].ContextMap()["session"])
}

func TestBot_CancelDiscardsSession(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")

	f.text(studentChat, btnCreateTask)
	f.text(studentChat, "Интегралы")
	_, ok := f.bot.sessions.Get(studentChat)
	require.True(t, ok)

	f.text(studentChat, "Отмена")
	assert.Contains(t, f.api.last(t, studentChat).Text, "Действие отменено")
	_, ok = f.bot.sessions.Get(studentChat)
	assert.False(t, ok)

	// сразу можно начать заново
	f.text(studentChat, btnCreateTask)
	assert.Contains(t, f.api.last(t, studentChat).Text, "Шаг 1/6")
}

func TestBot_MenuButtonInterruptsSession(t *testing.T) {
	f := newBotFixture(t)
	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")

	f.text(studentChat, btnCreateTask)
	f.text(studentChat, btnLeaderboard)
	assert.Contains(t, f.api.last(t, studentChat).Text, "Пока нет ни одного помощника")
	assert.Zero(t, f.bot.sessions.Len())
}

func TestBot_RegistrationRetriesOnBadName(t *testing.T) {
	f := newBotFixture(t)
	f.text(helperChat, "/start")
	f.press(helperChat, dialog.PrefixRole+string(models.Helper))
	f.text(helperChat, "Сидоров Сидор")
	assert.True(t, strings.HasPrefix(f.api.last(t, helperChat).Text, "❌ Неверный формат"))

	f.text(helperChat, "Сидоров Сидор гр. ИТ-2")
	assert.Contains(t, f.api.last(t, helperChat).Text, "Регистрация завершена")
}

func TestBot_RefusalsAreShownAsText(t *testing.T) {
	f := newBotFixture(t)
	f.text(studentChat, btnMyTasks)
	assert.Contains(t, f.api.last(t, studentChat).Text, "не зарегистрированы")

	f.register(t, studentChat, models.Student, "Петров Пётр гр. ИТ-1")
	f.text(studentChat, btnOpenTasks)
	assert.Equal(t, tasks.Refusal(tasks.ErrInvalidCaller), f.api.last(t, studentChat).Text)

	f.press(studentChat, cbData(actClaim, 999))
	assert.Equal(t, tasks.Refusal(tasks.ErrNotFound), f.api.last(t, studentChat).Text)

	f.press(studentChat, "garbage")
	assert.Contains(t, f.api.last(t, studentChat).Text, "Кнопка устарела")
}

func TestInputFrom(t *testing.T) {
	chatID, in, cbID, ok := inputFrom(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 5},
		Caption: "решение",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "big", Width: 1280},
		},
	}})
	require.True(t, ok)
	assert.Equal(t, int64(5), chatID)
	assert.Empty(t, cbID)
	assert.Equal(t, dialog.KindMessage, in.Kind)
	assert.Equal(t, "решение", in.Text)
	assert.Equal(t, &models.FileRef{ID: "big", Kind: models.FilePhoto}, in.File)

	_, in, _, ok = inputFrom(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 5},
		Document: &tgbotapi.Document{FileID: "doc", FileName: "task.pdf"},
	}})
	require.True(t, ok)
	assert.Equal(t, &models.FileRef{ID: "doc", Name: "task.pdf", Kind: models.FileDocument}, in.File)

	_, in, cbID, ok = inputFrom(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "q1", Data: "claim:3", Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}})
	require.True(t, ok)
	assert.Equal(t, "q1", cbID)
	assert.Equal(t, dialog.Callback("claim:3"), in)

	_, _, _, ok = inputFrom(tgbotapi.Update{})
	assert.False(t, ok)
}
