package tasks

import (
	"context"

	"github.com/Spok95/student-helper-bot/internal/ctxutil"
	"github.com/Spok95/student-helper-bot/internal/models"
)

// Task: одно задание со связями.
func (s *Service) Task(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.task(ctx, taskID)
}

// StudentTasks возвращает «Мои задания» студента по статусу, затем по времени создания.
func (s *Service) StudentTasks(ctx context.Context, studentChatID int64) ([]models.Task, error) {
	u, err := s.caller(ctx, studentChatID, models.Student)
	if err != nil {
		return nil, err
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListTasks(dctx, models.TaskFilter{StudentID: &u.ID, OrderByStatus: true})
}

// HelperTasks: задания, которые помощник взял или уже решил.
func (s *Service) HelperTasks(ctx context.Context, helperChatID int64) ([]models.Task, error) {
	u, err := s.caller(ctx, helperChatID, models.Helper)
	if err != nil {
		return nil, err
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListTasks(dctx, models.TaskFilter{HelperID: &u.ID, OrderByStatus: true})
}

// TeacherTasks: задания, в которых указан преподаватель (подстрока ФИО без учёта регистра).
func (s *Service) TeacherTasks(ctx context.Context, teacherChatID int64) ([]models.Task, error) {
	u, err := s.caller(ctx, teacherChatID, models.Teacher)
	if err != nil {
		return nil, err
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListTasks(dctx, models.TaskFilter{TeacherName: u.Name})
}

func (s *Service) TeacherStudents(ctx context.Context, teacherChatID int64) ([]models.User, error) {
	u, err := s.caller(ctx, teacherChatID, models.Teacher)
	if err != nil {
		return nil, err
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListStudentsByTeacher(dctx, u.Name)
}

// TeacherHelpers: помощники, завершившие задания этого преподавателя.
func (s *Service) TeacherHelpers(ctx context.Context, teacherChatID int64) ([]models.User, error) {
	u, err := s.caller(ctx, teacherChatID, models.Teacher)
	if err != nil {
		return nil, err
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListHelpersByTeacher(dctx, u.Name)
}

func (s *Service) HelperLeaderboard(ctx context.Context) ([]models.User, error) {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListHelpersByRating(dctx)
}

func (s *Service) Subjects(ctx context.Context) ([]models.Subject, error) {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return s.store.ListSubjects(dctx)
}
