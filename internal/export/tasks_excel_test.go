package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/student-helper-bot/internal/models"
)

func TestTasksWorkbook(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	helper := "Сидоров"
	rating := 5
	list := []models.Task{
		{
			ID:          1,
			Title:       "Интегралы",
			SubjectName: "Математика",
			StudentName: "Петров",
			Status:      models.StatusCompleted,
			CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Deadline:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			HelperName:  &helper,
			Rating:      &rating,
		},
		{
			ID:          2,
			Title:       "Эссе",
			SubjectName: "История",
			StudentName: "Петров",
			Status:      models.StatusNew,
			CreatedAt:   time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
			Deadline:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	f, err := TasksWorkbook(list, loc)
	require.NoError(t, err)

	rows, err := f.GetRows(tasksSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tasksHeader, rows[0])
	assert.Equal(t, []string{"1", "Интегралы", "Математика", "Петров", "Сидоров", "Выполнено", "01.03.2026 12:30", "05.03.2026", "5"}, rows[1])
	// время создания переводится в пояс сервиса, срок сдачи нет
	assert.Equal(t, "03.03.2026 01:00", rows[2][6])
	assert.Equal(t, "09.03.2026", rows[2][7])
	assert.Equal(t, "Новое", rows[2][5])

	path, err := SaveTemp(f, TasksFilename("Иванов И.И.", time.Date(2026, 3, 10, 0, 0, 0, 0, loc)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Dir(path)) })

	reopened, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	assert.Equal(t, []string{tasksSheet}, reopened.GetSheetList())
}

func TestTasksFilename(t *testing.T) {
	got := TasksFilename("Иванов  И/И", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Задания — Иванов И_И — 2026-03-10.xlsx", got)
}

func TestColumnName(t *testing.T) {
	for n, want := range map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"} {
		assert.Equal(t, want, columnName(n))
	}
}
