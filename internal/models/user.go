package models

import "time"

type Role string

const (
	Student Role = "student"
	Helper  Role = "helper"
	Teacher Role = "teacher"
)

func (r Role) Valid() bool {
	switch r {
	case Student, Helper, Teacher:
		return true
	}
	return false
}

// User: зарегистрированный участник. Role после регистрации не меняется,
// Rating пишет только пересчёт рейтинга.
type User struct {
	ID             int64     `db:"id"`
	TelegramID     int64     `db:"telegram_id"`
	Name           string    `db:"full_name"`
	Group          *string   `db:"group_name"`
	Role           Role      `db:"role"`
	Rating         float64   `db:"rating"`
	CompletedTasks int       `db:"completed_tasks"`
	CreatedAt      time.Time `db:"created_at"`
}

type Subject struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
