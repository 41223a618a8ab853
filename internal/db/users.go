package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Spok95/student-helper-bot/internal/models"
)

const userColumns = `id, telegram_id, full_name, group_name, role, rating, completed_tasks, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		u     models.User
		group sql.NullString
		role  string
	)
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &group, &role, &u.Rating, &u.CompletedTasks, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if group.Valid {
		g := group.String
		u.Group = &g
	}
	return &u, nil
}

// GetUserByTelegramID: sql.ErrNoRows, если пользователь не зарегистрирован.
func GetUserByTelegramID(ctx context.Context, q DBTX, telegramID int64) (*models.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	return scanUser(row)
}

// InsertUser регистрирует пользователя. false: telegram_id уже занят.
func InsertUser(ctx context.Context, q DBTX, u *models.User) (bool, error) {
	var group any
	if u.Group != nil {
		group = *u.Group
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, full_name, group_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING id, created_at
	`, u.TelegramID, u.Name, group, string(u.Role)).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func listUsers(ctx context.Context, q DBTX, query string, args ...any) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ListHelpersByRating сортирует помощников по рейтингу, затем по числу решённых.
func ListHelpersByRating(ctx context.Context, q DBTX) ([]models.User, error) {
	return listUsers(ctx, q, `
		SELECT `+userColumns+` FROM users
		WHERE role = 'helper'
		ORDER BY rating DESC, completed_tasks DESC, full_name
	`)
}

// ListStudentsByTeacher: студенты, хотя бы раз указавшие этого преподавателя.
func ListStudentsByTeacher(ctx context.Context, q DBTX, teacherName string) ([]models.User, error) {
	return listUsers(ctx, q, `
		SELECT `+prefixed("u", userColumns)+` FROM users u
		WHERE u.role = 'student'
		  AND EXISTS (
		    SELECT 1 FROM tasks t
		    WHERE t.student_id = u.id AND t.teacher_name ILIKE $1
		  )
		ORDER BY u.full_name
	`, containsPattern(teacherName))
}

// ListHelpersByTeacher: помощники, решившие задания этого преподавателя.
func ListHelpersByTeacher(ctx context.Context, q DBTX, teacherName string) ([]models.User, error) {
	return listUsers(ctx, q, `
		SELECT `+prefixed("u", userColumns)+` FROM users u
		WHERE u.role = 'helper'
		  AND EXISTS (
		    SELECT 1 FROM tasks t
		    WHERE t.helper_id = u.id AND t.status = 'completed'
		      AND t.teacher_name ILIKE $1
		  )
		ORDER BY u.rating DESC, u.full_name
	`, containsPattern(teacherName))
}

func IncrementCompleted(ctx context.Context, q DBTX, userID int64) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET completed_tasks = completed_tasks + 1 WHERE id = $1`, userID)
	return err
}

// LockUser: SELECT ... FOR UPDATE по строке пользователя, имеет смысл только в транзакции.
func LockUser(ctx context.Context, q DBTX, userID int64) error {
	var one int
	return q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&one)
}

func SetUserRating(ctx context.Context, q DBTX, userID int64, rating float64) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET rating = $2 WHERE id = $1`, userID, rating)
	return err
}

// HelperRatingStats: количество и сумма оценок по заданиям помощника.
func HelperRatingStats(ctx context.Context, q DBTX, helperID int64) (count, sum int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(rating), COALESCE(SUM(rating), 0)
		FROM tasks
		WHERE helper_id = $1 AND status = 'completed' AND rating IS NOT NULL
	`, helperID).Scan(&count, &sum)
	return count, sum, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern: шаблон ILIKE «подстрока целиком», % и _ в имени ищутся буквально.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// prefixed: "a, b" -> "u.a, u.b".
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
