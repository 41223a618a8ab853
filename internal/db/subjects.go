package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Spok95/student-helper-bot/internal/models"
)

const pgUniqueViolation = "23505"

func GetSubjectByID(ctx context.Context, q DBTX, id int64) (*models.Subject, error) {
	var s models.Subject
	err := q.QueryRowContext(ctx, `SELECT id, name, created_at FROM subjects WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func getSubjectByName(ctx context.Context, q DBTX, name string) (*models.Subject, error) {
	var s models.Subject
	err := q.QueryRowContext(ctx, `SELECT id, name, created_at FROM subjects WHERE lower(name) = lower($1)`, name).
		Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EnsureSubject: найти предмет по имени без учёта регистра или создать.
// Проигравший гонку на вставке перечитывает запись победителя.
func EnsureSubject(ctx context.Context, q DBTX, name string) (*models.Subject, error) {
	s, err := getSubjectByName(ctx, q, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var created models.Subject
	err = q.QueryRowContext(ctx, `
		INSERT INTO subjects (name) VALUES ($1)
		RETURNING id, name, created_at
	`, name).Scan(&created.ID, &created.Name, &created.CreatedAt)
	if err == nil {
		return &created, nil
	}
	if isUniqueViolation(err) {
		return getSubjectByName(ctx, q, name)
	}
	return nil, err
}

func ListSubjects(ctx context.Context, q DBTX) ([]models.Subject, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_at FROM subjects ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// isUniqueViolation понимает ошибки обоих драйверов: pgx в боте, lib/pq в тестовой базе.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
