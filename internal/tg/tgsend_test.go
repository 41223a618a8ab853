package tg

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSystemErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"too many requests", &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, true},
		{"bad gateway", &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}, true},
		{"bad request", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, false},
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, false},
		{"plain timeout", errors.New("net/http: request canceled (Client.Timeout exceeded) timeout"), true},
		{"not modified", errors.New("Bad Request: message is not modified"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, isSystemErr(c.err))
		})
	}
}

func TestIsUnreachable(t *testing.T) {
	assert.True(t, IsUnreachable(&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}))
	assert.True(t, IsUnreachable(errors.New("Bad Request: chat not found")))
	assert.False(t, IsUnreachable(&tgbotapi.Error{Code: 502, Message: "Bad Gateway"}))
	assert.False(t, IsUnreachable(nil))
}

type stubAPI struct{ err error }

func (s stubAPI) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{MessageID: 7}, s.err
}

func (s stubAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: s.err == nil}, s.err
}

func TestSendPassesThrough(t *testing.T) {
	m, err := Send(stubAPI{}, tgbotapi.NewMessage(1, "hi"))
	require.NoError(t, err)
	assert.Equal(t, 7, m.MessageID)

	boom := &tgbotapi.Error{Code: 500, Message: "Internal Server Error"}
	_, err = Request(stubAPI{err: boom}, tgbotapi.NewCallback("id", ""))
	assert.ErrorIs(t, err, boom)
}
