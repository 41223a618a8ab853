package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/student-helper-bot/internal/models"
)

const dateLayout = "2006-01-02"

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.created_at, t.deadline,
	       t.attachment_id, t.attachment_name, t.attachment_kind,
	       t.solution_text, t.solution_file_id, t.solution_file_kind,
	       t.rating, t.teacher_name,
	       t.subject_id, s.name,
	       t.student_id, st.full_name, st.telegram_id,
	       t.helper_id, h.full_name, h.telegram_id
	FROM tasks t
	JOIN subjects s ON s.id = t.subject_id
	JOIN users st ON st.id = t.student_id
	LEFT JOIN users h ON h.id = t.helper_id
`

func scanTask(row interface{ Scan(dest ...any) error }) (*models.Task, error) {
	var (
		t                         models.Task
		status                    string
		attID, attName, attKind   sql.NullString
		solText, solFile, solKind sql.NullString
		rating                    sql.NullInt64
		helperID, helperTG        sql.NullInt64
		helperName                sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.Deadline,
		&attID, &attName, &attKind,
		&solText, &solFile, &solKind,
		&rating, &t.TeacherName,
		&t.SubjectID, &t.SubjectName,
		&t.StudentID, &t.StudentName, &t.StudentChatID,
		&helperID, &helperName, &helperTG,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	if attID.Valid && attID.String != "" {
		t.Attachment = &models.FileRef{ID: attID.String, Name: attName.String, Kind: models.FileKind(attKind.String)}
	}
	if solText.Valid || solFile.Valid {
		sol := &models.Solution{Text: solText.String}
		if solFile.Valid && solFile.String != "" {
			sol.File = &models.FileRef{ID: solFile.String, Kind: models.FileKind(solKind.String)}
		}
		t.Solution = sol
	}
	if rating.Valid {
		r := int(rating.Int64)
		t.Rating = &r
	}
	if helperID.Valid {
		id, tg, name := helperID.Int64, helperTG.Int64, helperName.String
		t.HelperID, t.HelperChatID, t.HelperName = &id, &tg, &name
	}
	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertTask: новое задание всегда без помощника, решения и оценки.
func InsertTask(ctx context.Context, q DBTX, t *models.Task) (int64, error) {
	var attID, attName, attKind any
	if t.Attachment != nil {
		attID, attName, attKind = nullable(t.Attachment.ID), nullable(t.Attachment.Name), nullable(string(t.Attachment.Kind))
	}
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, status, deadline,
		                   attachment_id, attachment_name, attachment_kind,
		                   teacher_name, student_id, subject_id)
		VALUES ($1, $2, 'new', $3::date, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, t.Title, t.Description, t.Deadline.Format(dateLayout),
		attID, attName, attKind,
		t.TeacherName, t.StudentID, t.SubjectID,
	).Scan(&id, &t.CreatedAt)
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

func GetTaskByID(ctx context.Context, q DBTX, id int64) (*models.Task, error) {
	return scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
}

// ListTasks: выборка с необязательными фильтрами. По умолчанию в порядке создания;
// с OrderByStatus сначала new, потом in_progress, потом completed.
func ListTasks(ctx context.Context, q DBTX, f models.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("t.status = $%d", string(*f.Status))
	}
	if f.SubjectID != nil {
		add("t.subject_id = $%d", *f.SubjectID)
	}
	if f.StudentID != nil {
		add("t.student_id = $%d", *f.StudentID)
	}
	if f.HelperID != nil {
		add("t.helper_id = $%d", *f.HelperID)
	}
	if name := strings.TrimSpace(f.TeacherName); name != "" {
		add("t.teacher_name ILIKE $%d", containsPattern(name))
	}

	query := taskSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.OrderByStatus {
		query += ` ORDER BY CASE t.status WHEN 'new' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END, t.created_at, t.id`
	} else {
		query += ` ORDER BY t.created_at, t.id`
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClaimTask: new -> in_progress. false, если задание уже кем-то взято.
func ClaimTask(ctx context.Context, q DBTX, taskID, helperID int64) (bool, error) {
	return affected(q.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'in_progress', helper_id = $2
		WHERE id = $1 AND status = 'new'
	`, taskID, helperID))
}

// AbandonTask: in_progress -> new, только для текущего помощника.
func AbandonTask(ctx context.Context, q DBTX, taskID, helperID int64) (bool, error) {
	return affected(q.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'new', helper_id = NULL, deadline_reminded = false
		WHERE id = $1 AND status = 'in_progress' AND helper_id = $2
	`, taskID, helperID))
}

// CompleteTask: in_progress -> completed вместе с решением.
func CompleteTask(ctx context.Context, q DBTX, taskID, helperID int64, sol models.Solution) (bool, error) {
	var fileID, fileKind any
	if sol.File != nil {
		fileID, fileKind = nullable(sol.File.ID), nullable(string(sol.File.Kind))
	}
	return affected(q.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'completed', solution_text = $3, solution_file_id = $4, solution_file_kind = $5
		WHERE id = $1 AND status = 'in_progress' AND helper_id = $2
	`, taskID, helperID, nullable(sol.Text), fileID, fileKind))
}

// DeleteTask удаляет только своё задание в статусе new.
func DeleteTask(ctx context.Context, q DBTX, taskID, studentID int64) (bool, error) {
	return affected(q.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND student_id = $2 AND status = 'new'
	`, taskID, studentID))
}

// RateTask: оценка ставится один раз и только завершённому заданию.
func RateTask(ctx context.Context, q DBTX, taskID, studentID int64, rating int) (bool, error) {
	return affected(q.ExecContext(ctx, `
		UPDATE tasks
		SET rating = $3
		WHERE id = $1 AND student_id = $2 AND status = 'completed' AND rating IS NULL
	`, taskID, studentID, rating))
}

// CountTasksByStatus: для метрик.
func CountTasksByStatus(ctx context.Context, q DBTX) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int, 3)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func dateArg(day time.Time) string { return day.Format(dateLayout) }
