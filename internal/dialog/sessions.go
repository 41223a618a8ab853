package dialog

import (
	"strconv"
	"strings"

	"github.com/Spok95/student-helper-bot/internal/models"
)

// SolutionSession ждёт решение к заданию: текст, фото или документ.
type SolutionSession struct {
	TaskID   int64
	solution models.Solution
}

func NewSolutionSession(taskID int64) *SolutionSession {
	return &SolutionSession{TaskID: taskID}
}

func (s *SolutionSession) Name() string { return "solution" }

func (s *SolutionSession) Intro() Reply {
	return Reply{Text: "✍️ Отправьте решение: текст, фото или документ (можно с подписью)."}
}

func (s *SolutionSession) Solution() models.Solution { return s.solution }

func (s *SolutionSession) Handle(in Input) (Reply, bool) {
	if in.Kind != KindMessage {
		return s.Intro(), false
	}
	sol := models.Solution{Text: strings.TrimSpace(in.Text)}
	if in.File != nil && in.File.ID != "" {
		f := *in.File
		sol.File = &f
	}
	if sol.Empty() {
		return Reply{Text: "❌ Решение пустое. " + s.Intro().Text}, false
	}
	s.solution = sol
	return Reply{}, true
}

// RegisterSession: выбор роли кнопкой, затем ФИО (с группой для студента и помощника).
type RegisterSession struct {
	role models.Role
	name string
}

func NewRegisterSession() *RegisterSession { return &RegisterSession{} }

func (s *RegisterSession) Name() string { return "register" }

func (s *RegisterSession) Role() models.Role { return s.role }

func (s *RegisterSession) FullName() string { return s.name }

func (s *RegisterSession) Intro() Reply {
	return Reply{Text: "👋 Добро пожаловать! Выберите вашу роль:", Ask: AskRole}
}

// Retry: ФИО не прошло проверку, ждём новое.
func (s *RegisterSession) Retry(reason string) Reply {
	s.name = ""
	return Reply{Text: reason + "\n" + s.namePrompt().Text}
}

func (s *RegisterSession) Handle(in Input) (Reply, bool) {
	if s.role == "" {
		if in.Kind != KindCallback || !strings.HasPrefix(in.Data, PrefixRole) {
			return s.Intro(), false
		}
		role := models.Role(strings.TrimPrefix(in.Data, PrefixRole))
		if !role.Valid() {
			return s.Intro(), false
		}
		s.role = role
		return s.namePrompt(), false
	}
	name := in.text()
	if name == "" {
		return s.namePrompt(), false
	}
	s.name = name
	return Reply{}, true
}

func (s *RegisterSession) namePrompt() Reply {
	if s.role == models.Teacher {
		return Reply{Text: "Введите ваше ФИО:"}
	}
	return Reply{Text: "Введите ФИО и группу в формате: Иванов Иван гр. ИТ-1"}
}

// RateSession помнит, какое задание оценивается, до нажатия rate_set:<n>.
type RateSession struct {
	TaskID int64
	rating int
}

func NewRateSession(taskID int64) *RateSession { return &RateSession{TaskID: taskID} }

func (s *RateSession) Name() string { return "rate" }

func (s *RateSession) Rating() int { return s.rating }

func (s *RateSession) Intro() Reply {
	return Reply{Text: "⭐ Оцените решение от 1 до 5:", Ask: AskRating}
}

func (s *RateSession) Handle(in Input) (Reply, bool) {
	if in.Kind != KindCallback || !strings.HasPrefix(in.Data, PrefixRateSet) {
		return s.Intro(), false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(in.Data, PrefixRateSet))
	if err != nil || n < 1 || n > 5 {
		return s.Intro(), false
	}
	s.rating = n
	return Reply{}, true
}
