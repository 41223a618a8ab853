package dialog

import (
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/student-helper-bot/internal/tasks"
)

type Step int

const (
	StepTitle Step = iota + 1
	StepDescription
	StepSubject
	StepSubjectName
	StepTeacher
	StepDeadline
	StepAttachment
	StepDone
)

const deadlineLayout = "02.01.2006"

// DeadlineValidator: проверка даты сдачи; в боте это tasks.Service.ValidateDeadline.
type DeadlineValidator func(time.Time) (time.Time, error)

// CreateTaskSession собирает поля нового задания по одному за ход.
type CreateTaskSession struct {
	step     Step
	draft    tasks.NewTask
	loc      *time.Location
	deadline DeadlineValidator
}

func NewCreateTaskSession(loc *time.Location, validate DeadlineValidator) *CreateTaskSession {
	if loc == nil {
		loc = time.Local
	}
	return &CreateTaskSession{step: StepTitle, loc: loc, deadline: validate}
}

func (s *CreateTaskSession) Name() string { return "create_task" }

func (s *CreateTaskSession) Step() Step { return s.step }

// Task: собранные поля; полны только после StepDone.
func (s *CreateTaskSession) Task() tasks.NewTask { return s.draft }

// Intro: первая подсказка диалога.
func (s *CreateTaskSession) Intro() Reply {
	return Reply{Text: "📝 Шаг 1/6. Введите тему задания:"}
}

// Handle принимает один ход. done=true, когда все поля собраны.
// Неверный ввод оставляет шаг прежним и повторяет вопрос.
func (s *CreateTaskSession) Handle(in Input) (reply Reply, done bool) {
	switch s.step {
	case StepTitle:
		title := in.text()
		if err := tasks.ValidateTitle(title); err != nil {
			return retry(err, s.prompt()), false
		}
		s.draft.Title = title
		s.step = StepDescription

	case StepDescription:
		desc := in.text()
		if desc == "" {
			return Reply{Text: "❌ Описание не может быть пустым. Опишите задание:"}, false
		}
		s.draft.Description = desc
		s.step = StepSubject

	case StepSubject:
		if in.Kind == KindCallback {
			switch {
			case in.Data == DataSubjectNew:
				s.step = StepSubjectName
				return s.prompt(), false
			case strings.HasPrefix(in.Data, PrefixSubject):
				id, err := strconv.ParseInt(strings.TrimPrefix(in.Data, PrefixSubject), 10, 64)
				if err != nil || id <= 0 {
					return s.prompt(), false
				}
				s.draft.Subject = tasks.SubjectRef{ID: id}
				s.step = StepTeacher
				return s.prompt(), false
			}
			return s.prompt(), false
		}
		if !s.setSubjectName(in.text()) {
			return retry(tasks.ValidateSubjectName(in.text()), s.prompt()), false
		}

	case StepSubjectName:
		if !s.setSubjectName(in.text()) {
			return retry(tasks.ValidateSubjectName(in.text()), s.prompt()), false
		}

	case StepTeacher:
		name := in.text()
		if err := tasks.ValidateTeacherName(name); err != nil {
			return retry(err, s.prompt()), false
		}
		s.draft.TeacherName = name
		s.step = StepDeadline

	case StepDeadline:
		day, err := time.ParseInLocation(deadlineLayout, in.text(), s.loc)
		if err != nil {
			return Reply{Text: "❌ Неверный формат даты. Введите срок сдачи в формате ДД.ММ.ГГГГ:"}, false
		}
		if s.deadline != nil {
			if day, err = s.deadline(day); err != nil {
				return retry(err, s.prompt()), false
			}
		}
		s.draft.Deadline = day
		s.step = StepAttachment

	case StepAttachment:
		switch {
		case in.IsSkip():
			s.draft.Attachment = nil
		case in.File != nil && in.File.ID != "":
			f := *in.File
			s.draft.Attachment = &f
		default:
			return Reply{Text: "Прикрепите фото или документ, либо нажмите «Пропустить» (/skip).", Ask: AskAttachment}, false
		}
		s.step = StepDone
		return Reply{}, true

	case StepDone:
		return Reply{}, true
	}
	return s.prompt(), false
}

func (s *CreateTaskSession) setSubjectName(name string) bool {
	if tasks.ValidateSubjectName(name) != nil {
		return false
	}
	s.draft.Subject = tasks.SubjectRef{Name: name}
	s.step = StepTeacher
	return true
}

func (s *CreateTaskSession) prompt() Reply {
	switch s.step {
	case StepTitle:
		return s.Intro()
	case StepDescription:
		return Reply{Text: "Шаг 2/6. Опишите задание подробно:"}
	case StepSubject:
		return Reply{Text: "Шаг 3/6. Выберите предмет или введите название:", Ask: AskSubject}
	case StepSubjectName:
		return Reply{Text: "Введите название нового предмета:"}
	case StepTeacher:
		return Reply{Text: "Шаг 4/6. Введите ФИО преподавателя:"}
	case StepDeadline:
		return Reply{Text: "Шаг 5/6. Введите срок сдачи (ДД.ММ.ГГГГ):"}
	case StepAttachment:
		return Reply{Text: "Шаг 6/6. Прикрепите фото или документ к заданию или нажмите «Пропустить».", Ask: AskAttachment}
	}
	return Reply{}
}

func retry(err error, next Reply) Reply {
	if err == nil {
		return next
	}
	next.Text = tasks.Refusal(err) + "\n" + next.Text
	return next
}
