package dialog

import (
	"strings"

	"github.com/Spok95/student-helper-bot/internal/models"
)

type Kind int

const (
	KindMessage Kind = iota + 1
	KindCallback
)

// Input описывает один ход пользователя, то есть сообщение (текст, подпись, файл) или нажатие кнопки.
type Input struct {
	Kind Kind
	Text string
	Data string
	File *models.FileRef
}

func Message(text string, file *models.FileRef) Input {
	return Input{Kind: KindMessage, Text: text, File: file}
}

func Callback(data string) Input {
	return Input{Kind: KindCallback, Data: data}
}

// Общие callback-данные диалогов.
const (
	DataCancel     = "cancel"
	DataSkip       = "skip"
	DataSubjectNew = "subj:new"
	PrefixSubject  = "subj:"
	PrefixRole     = "role:"
	PrefixRateSet  = "rate_set:"
)

// IsCancel: «Отмена», /cancel или кнопка отмены.
func (in Input) IsCancel() bool {
	if in.Kind == KindCallback {
		return in.Data == DataCancel
	}
	s := strings.TrimSpace(strings.ToLower(in.Text))
	return s == "отмена" || s == "/cancel" || s == "cancel" || s == "❌ отмена"
}

func (in Input) IsSkip() bool {
	if in.Kind == KindCallback {
		return in.Data == DataSkip
	}
	s := strings.TrimSpace(strings.ToLower(in.Text))
	return s == "/skip" || s == "пропустить"
}

// text: введённый текст без пробелов по краям; пусто для кнопок.
func (in Input) text() string {
	if in.Kind != KindMessage {
		return ""
	}
	return strings.TrimSpace(in.Text)
}
