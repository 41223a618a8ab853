package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

// Store: реализация tasks.Store поверх Postgres.
// sql.ErrNoRows наружу уходит как tasks.ErrNotFound.
type Store struct {
	db *sql.DB
	q  DBTX
}

var _ tasks.Store = (*Store)(nil)

func NewStore(database *sql.DB) *Store {
	return &Store{db: database, q: database}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.ErrNotFound
	}
	return err
}

func (s *Store) InTx(ctx context.Context, fn func(tasks.Store) error) error {
	if s.db == nil {
		// уже внутри транзакции
		return fn(s)
	}
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Store{q: tx})
	})
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	u, err := GetUserByTelegramID(ctx, s.q, telegramID)
	return u, notFound(err)
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) (bool, error) {
	return InsertUser(ctx, s.q, u)
}

func (s *Store) ListHelpersByRating(ctx context.Context) ([]models.User, error) {
	return ListHelpersByRating(ctx, s.q)
}

func (s *Store) ListStudentsByTeacher(ctx context.Context, teacherName string) ([]models.User, error) {
	return ListStudentsByTeacher(ctx, s.q, teacherName)
}

func (s *Store) ListHelpersByTeacher(ctx context.Context, teacherName string) ([]models.User, error) {
	return ListHelpersByTeacher(ctx, s.q, teacherName)
}

func (s *Store) IncrementCompleted(ctx context.Context, userID int64) error {
	return IncrementCompleted(ctx, s.q, userID)
}

func (s *Store) LockUser(ctx context.Context, userID int64) error {
	return notFound(LockUser(ctx, s.q, userID))
}

func (s *Store) HelperRatingStats(ctx context.Context, helperID int64) (int, int, error) {
	return HelperRatingStats(ctx, s.q, helperID)
}

func (s *Store) SetUserRating(ctx context.Context, userID int64, rating float64) error {
	return SetUserRating(ctx, s.q, userID, rating)
}

func (s *Store) SubjectByID(ctx context.Context, id int64) (*models.Subject, error) {
	subj, err := GetSubjectByID(ctx, s.q, id)
	return subj, notFound(err)
}

func (s *Store) EnsureSubject(ctx context.Context, name string) (*models.Subject, error) {
	return EnsureSubject(ctx, s.q, name)
}

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return ListSubjects(ctx, s.q)
}

func (s *Store) InsertTask(ctx context.Context, t *models.Task) (int64, error) {
	return InsertTask(ctx, s.q, t)
}

func (s *Store) TaskByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := GetTaskByID(ctx, s.q, id)
	return t, notFound(err)
}

func (s *Store) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	return ListTasks(ctx, s.q, f)
}

func (s *Store) ClaimTask(ctx context.Context, taskID, helperID int64) (bool, error) {
	return ClaimTask(ctx, s.q, taskID, helperID)
}

func (s *Store) AbandonTask(ctx context.Context, taskID, helperID int64) (bool, error) {
	return AbandonTask(ctx, s.q, taskID, helperID)
}

func (s *Store) CompleteTask(ctx context.Context, taskID, helperID int64, sol models.Solution) (bool, error) {
	return CompleteTask(ctx, s.q, taskID, helperID, sol)
}

func (s *Store) DeleteTask(ctx context.Context, taskID, studentID int64) (bool, error) {
	return DeleteTask(ctx, s.q, taskID, studentID)
}

func (s *Store) RateTask(ctx context.Context, taskID, studentID int64, rating int) (bool, error) {
	return RateTask(ctx, s.q, taskID, studentID, rating)
}

func (s *Store) DueDeadlineReminders(ctx context.Context, day time.Time, limit int) ([]models.Task, error) {
	return DueDeadlineReminders(ctx, s.q, day, limit)
}

func (s *Store) MarkDeadlineReminded(ctx context.Context, ids []int64) error {
	return MarkDeadlineReminded(ctx, s.q, ids)
}

// TaskCounts: число заданий по статусам (для метрик).
func (s *Store) TaskCounts(ctx context.Context) (map[string]int, error) {
	return CountTasksByStatus(ctx, s.q)
}

// Ping для /healthz.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}
