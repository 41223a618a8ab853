package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/metrics"
	"github.com/Spok95/student-helper-bot/internal/models"
)

const (
	maxTitleLen   = 100
	maxTeacherLen = 100
	maxSubjectLen = 100
)

// Service ведёт задания по машине состояний от создания до оценки.
type Service struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time

	subjects singleflight.Group
}

type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, notifier Notifier, log *zap.Logger, loc *time.Location, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubjectRef указывает предмет по id из списка или по введённому имени.
type SubjectRef struct {
	ID   int64
	Name string
}

// NewTask: полностью собранный набор полей из диалога создания задания.
type NewTask struct {
	Title       string
	Description string
	Subject     SubjectRef
	TeacherName string
	Deadline    time.Time
	Attachment  *models.FileRef
}

// CreateTask создаёт задание в статусе new от имени студента.
func (s *Service) CreateTask(ctx context.Context, studentChatID int64, in NewTask) (id int64, err error) {
	defer func() { observe("create", err) }()

	student, err := s.caller(ctx, studentChatID, models.Student)
	if err != nil {
		return 0, err
	}
	if err := ValidateTitle(in.Title); err != nil {
		return 0, err
	}
	if strings.TrimSpace(in.Description) == "" {
		return 0, &FieldError{Field: "description", Reason: "Описание не может быть пустым"}
	}
	if err := ValidateTeacherName(in.TeacherName); err != nil {
		return 0, err
	}
	deadline, err := s.ValidateDeadline(in.Deadline)
	if err != nil {
		return 0, err
	}
	subject, err := s.resolveSubject(ctx, in.Subject)
	if err != nil {
		return 0, err
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	id, err = s.store.InsertTask(dctx, &models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      models.StatusNew,
		Deadline:    deadline,
		Attachment:  in.Attachment,
		TeacherName: strings.TrimSpace(in.TeacherName),
		SubjectID:   subject.ID,
		StudentID:   student.ID,
	})
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	s.log.Info("task created",
		zap.Int64("task_id", id),
		zap.Int64("student_id", student.ID),
		zap.Int64("subject_id", subject.ID),
	)
	return id, nil
}

// ListOpenTasks: задания в статусе new, по порядку создания.
func (s *Service) ListOpenTasks(ctx context.Context, subjectID *int64) ([]models.Task, error) {
	st := models.StatusNew
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListTasks(dctx, models.TaskFilter{Status: &st, SubjectID: subjectID})
}

// ClaimTask: помощник берёт задание. Проигравший гонку получает ErrAlreadyClaimed.
func (s *Service) ClaimTask(ctx context.Context, taskID, helperChatID int64) (err error) {
	defer func() { observe("claim", err) }()

	task, err := s.task(ctx, taskID)
	if err != nil {
		return err
	}
	helper, err := s.caller(ctx, helperChatID, models.Helper)
	if err != nil {
		return err
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ok, err := s.store.ClaimTask(dctx, taskID, helper.ID)
	if err != nil {
		return fmt.Errorf("claim task %d: %w", taskID, err)
	}
	if !ok {
		return ErrAlreadyClaimed
	}
	s.log.Info("task claimed", zap.Int64("task_id", taskID), zap.Int64("helper_id", helper.ID))

	task.Status = models.StatusInProgress
	s.notify(ctx, task.StudentChatID, Event{Kind: EventClaimed, Task: *task, HelperName: helper.Name})
	return nil
}

// AbandonTask: помощник отказывается; задание снова new, содержимое не трогаем.
func (s *Service) AbandonTask(ctx context.Context, taskID, helperChatID int64) (err error) {
	defer func() { observe("abandon", err) }()

	task, err := s.task(ctx, taskID)
	if err != nil {
		return err
	}
	helper, err := s.registered(ctx, helperChatID)
	if err != nil {
		return err
	}
	if task.HelperID == nil || *task.HelperID != helper.ID {
		return ErrNotOwnedByCaller
	}
	if task.Status != models.StatusInProgress {
		return ErrInvalidState
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ok, err := s.store.AbandonTask(dctx, taskID, helper.ID)
	if err != nil {
		return fmt.Errorf("abandon task %d: %w", taskID, err)
	}
	if !ok {
		return ErrInvalidState
	}
	s.log.Info("task abandoned", zap.Int64("task_id", taskID), zap.Int64("helper_id", helper.ID))

	task.Status = models.StatusNew
	task.HelperID, task.HelperName, task.HelperChatID = nil, nil, nil
	s.notify(ctx, task.StudentChatID, Event{Kind: EventAbandoned, Task: *task, HelperName: helper.Name})
	return nil
}

// SubmitSolution записывает решение, завершает задание и увеличивает счётчик помощника.
func (s *Service) SubmitSolution(ctx context.Context, taskID, helperChatID int64, sol models.Solution) (err error) {
	defer func() { observe("submit", err) }()

	sol.Text = strings.TrimSpace(sol.Text)
	if sol.Empty() {
		return ErrEmptySolution
	}
	task, err := s.task(ctx, taskID)
	if err != nil {
		return err
	}
	helper, err := s.registered(ctx, helperChatID)
	if err != nil {
		return err
	}
	if task.HelperID == nil || *task.HelperID != helper.ID || task.Status != models.StatusInProgress {
		return ErrNotOwnedByCaller
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	err = s.store.InTx(dctx, func(tx Store) error {
		ok, err := tx.CompleteTask(dctx, taskID, helper.ID, sol)
		if err != nil {
			return fmt.Errorf("complete task %d: %w", taskID, err)
		}
		if !ok {
			return ErrNotOwnedByCaller
		}
		return tx.IncrementCompleted(dctx, helper.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("task completed", zap.Int64("task_id", taskID), zap.Int64("helper_id", helper.ID))

	task.Status = models.StatusCompleted
	task.Solution = &sol
	s.notify(ctx, task.StudentChatID, Event{Kind: EventSolved, Task: *task, HelperName: helper.Name, Solution: &sol})
	return nil
}

// DeleteTask: студент удаляет своё задание, пока оно new.
func (s *Service) DeleteTask(ctx context.Context, taskID, studentChatID int64) (err error) {
	defer func() { observe("delete", err) }()

	task, err := s.task(ctx, taskID)
	if err != nil {
		return err
	}
	student, err := s.registered(ctx, studentChatID)
	if err != nil {
		return err
	}
	if task.StudentID != student.ID {
		return ErrNotOwnedByCaller
	}
	if task.Status != models.StatusNew {
		return ErrInvalidState
	}

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ok, err := s.store.DeleteTask(dctx, taskID, student.ID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}
	if !ok {
		return ErrInvalidState
	}
	s.log.Info("task deleted", zap.Int64("task_id", taskID), zap.Int64("student_id", student.ID))
	return nil
}

// RateTask: единственная оценка завершённого задания; рейтинг помощника
// пересчитывается в той же транзакции.
func (s *Service) RateTask(ctx context.Context, taskID, studentChatID int64, rating int) (err error) {
	defer func() { observe("rate", err) }()

	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	task, err := s.task(ctx, taskID)
	if err != nil {
		return err
	}
	student, err := s.registered(ctx, studentChatID)
	if err != nil {
		return err
	}
	if task.StudentID != student.ID {
		return ErrNotOwnedByCaller
	}
	if task.Status != models.StatusCompleted || task.Rating != nil || task.HelperID == nil {
		return ErrInvalidState
	}
	helperID := *task.HelperID

	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	err = s.store.InTx(dctx, func(tx Store) error {
		ok, err := tx.RateTask(dctx, taskID, student.ID, rating)
		if err != nil {
			return fmt.Errorf("rate task %d: %w", taskID, err)
		}
		if !ok {
			return ErrInvalidState
		}
		return RecomputeRating(dctx, tx, helperID)
	})
	if err != nil {
		return err
	}
	s.log.Info("task rated", zap.Int64("task_id", taskID), zap.Int("rating", rating), zap.Int64("helper_id", helperID))
	return nil
}

// ValidateDeadline проверяет, что дата сдачи строго позже сегодняшней
// (календарные даты в часовом поясе сервиса), и возвращает её без времени.
func (s *Service) ValidateDeadline(deadline time.Time) (time.Time, error) {
	if deadline.IsZero() {
		return time.Time{}, ErrInvalidDeadline
	}
	today := dateOf(s.now().In(s.loc))
	day := dateOf(deadline.In(s.loc))
	if !day.After(today) {
		return time.Time{}, ErrInvalidDeadline
	}
	return day, nil
}

// Today: сегодняшняя дата в часовом поясе сервиса.
func (s *Service) Today() time.Time { return dateOf(s.now().In(s.loc)) }

// Now: текущее время сервиса, в тестах подменяется через WithClock.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) Location() *time.Location { return s.loc }

func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &FieldError{Field: "title", Reason: "Тема не может быть пустой"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return &FieldError{Field: "title", Reason: fmt.Sprintf("Тема длиннее %d символов", maxTitleLen)}
	}
	return nil
}

func ValidateTeacherName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: "teacher_name", Reason: "ФИО преподавателя не может быть пустым"}
	}
	if utf8.RuneCountInString(name) > maxTeacherLen {
		return &FieldError{Field: "teacher_name", Reason: fmt.Sprintf("ФИО длиннее %d символов", maxTeacherLen)}
	}
	return nil
}

func ValidateSubjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: "subject", Reason: "Название предмета не может быть пустым"}
	}
	if utf8.RuneCountInString(name) > maxSubjectLen {
		return &FieldError{Field: "subject", Reason: fmt.Sprintf("Название длиннее %d символов", maxSubjectLen)}
	}
	return nil
}

func (s *Service) resolveSubject(ctx context.Context, ref SubjectRef) (*models.Subject, error) {
	if ref.ID != 0 {
		dctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		subj, err := s.store.SubjectByID(dctx, ref.ID)
		if errors.Is(err, ErrNotFound) {
			return nil, &FieldError{Field: "subject", Reason: "Такого предмета нет, выберите из списка"}
		}
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", ref.ID, err)
		}
		return subj, nil
	}
	name := strings.TrimSpace(ref.Name)
	if err := ValidateSubjectName(name); err != nil {
		return nil, err
	}
	// одинаковые имена из параллельных диалогов идут в базу одним запросом;
	// у общего запроса свой таймаут, отмена первого вызывающего его не обрывает
	ch := s.subjects.DoChan(strings.ToLower(name), func() (any, error) {
		dctx, cancel := ctxutil.WithDBTimeout(context.WithoutCancel(ctx))
		defer cancel()
		return s.store.EnsureSubject(dctx, name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("ensure subject %q: %w", name, res.Err)
		}
		return res.Val.(*models.Subject), nil
	}
}

func (s *Service) task(ctx context.Context, taskID int64) (*models.Task, error) {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	t, err := s.store.TaskByID(dctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("task %d: %w", taskID, err)
	}
	return t, nil
}

// registered возвращает любого зарегистрированного пользователя, иначе ErrInvalidCaller.
func (s *Service) registered(ctx context.Context, chatID int64) (*models.User, error) {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	u, err := s.store.UserByTelegramID(dctx, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCaller
		}
		return nil, fmt.Errorf("user %d: %w", chatID, err)
	}
	return u, nil
}

func (s *Service) caller(ctx context.Context, chatID int64, role models.Role) (*models.User, error) {
	u, err := s.registered(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, ErrInvalidCaller
	}
	return u, nil
}

func (s *Service) notify(ctx context.Context, chatID int64, ev Event) {
	if s.notifier == nil || chatID == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, chatID, ev); err != nil {
		metrics.NotifyFailures.Inc()
		s.log.Warn("notification failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("task_id", ev.Task.ID),
			zap.String("event", string(ev.Kind)),
			zap.Error(err),
		)
	}
}

func observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyClaimed):
		outcome = "already_claimed"
	case IsRefusal(err):
		outcome = "refused"
	default:
		outcome = "error"
	}
	metrics.TaskOps.WithLabelValues(op, outcome).Inc()
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
