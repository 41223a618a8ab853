package tasks

import (
	"context"
	"time"

	"github.com/Spok95/student-helper-bot/internal/models"
)

// Store: шлюз хранения, которым пользуется движок. Все операции атомарны на одну запись;
// Claim/Abandon/Complete/Delete/Rate: условные (compare-and-commit) и возвращают false,
// если предусловие по статусу уже не выполняется.
type Store interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) (bool, error)
	ListHelpersByRating(ctx context.Context) ([]models.User, error)
	ListStudentsByTeacher(ctx context.Context, teacherName string) ([]models.User, error)
	ListHelpersByTeacher(ctx context.Context, teacherName string) ([]models.User, error)
	IncrementCompleted(ctx context.Context, userID int64) error
	// LockUser берёт блокировку строки пользователя до конца транзакции.
	LockUser(ctx context.Context, userID int64) error
	HelperRatingStats(ctx context.Context, helperID int64) (count, sum int, err error)
	SetUserRating(ctx context.Context, userID int64, rating float64) error

	SubjectByID(ctx context.Context, id int64) (*models.Subject, error)
	// EnsureSubject возвращает существующий предмет с таким именем (без учёта регистра)
	// или создаёт новый; конкурентные вставки схлопываются в одну запись.
	EnsureSubject(ctx context.Context, name string) (*models.Subject, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)

	InsertTask(ctx context.Context, t *models.Task) (int64, error)
	TaskByID(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	ClaimTask(ctx context.Context, taskID, helperID int64) (bool, error)
	AbandonTask(ctx context.Context, taskID, helperID int64) (bool, error)
	CompleteTask(ctx context.Context, taskID, helperID int64, sol models.Solution) (bool, error)
	DeleteTask(ctx context.Context, taskID, studentID int64) (bool, error)
	RateTask(ctx context.Context, taskID, studentID int64, rating int) (bool, error)

	DueDeadlineReminders(ctx context.Context, day time.Time, limit int) ([]models.Task, error)
	MarkDeadlineReminded(ctx context.Context, ids []int64) error

	// InTx выполняет fn в одной транзакции; Store внутри fn привязан к ней.
	InTx(ctx context.Context, fn func(Store) error) error
}

type EventKind string

const (
	EventClaimed      EventKind = "claimed"
	EventAbandoned    EventKind = "abandoned"
	EventSolved       EventKind = "solved"
	EventDeadlineSoon EventKind = "deadline_soon"
)

// Event: что произошло с задачей; текст сообщения собирает Notifier.
type Event struct {
	Kind       EventKind
	Task       models.Task
	HelperName string
	Solution   *models.Solution
}

// Notifier доставляет события best-effort. Ошибка только логируется.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, ev Event) error
}
