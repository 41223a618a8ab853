package db

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/student-helper-bot/internal/models"
)

// DueDeadlineReminders: задания в работе со сроком day, о которых ещё не напоминали.
func DueDeadlineReminders(ctx context.Context, q DBTX, day time.Time, limit int) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, taskSelect+`
		WHERE t.status = 'in_progress'
		  AND t.deadline = $1::date
		  AND NOT t.deadline_reminded
		ORDER BY t.id
		LIMIT $2
	`, dateArg(day), limit)
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

func MarkDeadlineReminded(ctx context.Context, q DBTX, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `UPDATE tasks SET deadline_reminded = true WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
