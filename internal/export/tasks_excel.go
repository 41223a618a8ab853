package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/student-helper-bot/internal/models"
)

const tasksSheet = "Задания"

var tasksHeader = []string{
	"№", "Тема", "Предмет", "Студент", "Помощник", "Статус", "Создано", "Срок сдачи", "Оценка",
}

// StatusTitle: статус задания по-русски.
func StatusTitle(s models.TaskStatus) string {
	switch s {
	case models.StatusNew:
		return "Новое"
	case models.StatusInProgress:
		return "В работе"
	case models.StatusCompleted:
		return "Выполнено"
	}
	return string(s)
}

// TasksWorkbook: один лист со списком заданий. Время создания в часовом поясе loc.
func TasksWorkbook(list []models.Task, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.Local
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", tasksSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(tasksHeader))
	for i, h := range tasksHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(tasksSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	for i, t := range list {
		helper := ""
		if t.HelperName != nil {
			helper = *t.HelperName
		}
		rating := ""
		if t.Rating != nil {
			rating = strconv.Itoa(*t.Rating)
		}
		row := []any{
			t.ID,
			t.Title,
			t.SubjectName,
			t.StudentName,
			helper,
			StatusTitle(t.Status),
			t.CreatedAt.In(loc).Format("02.01.2006 15:04"),
			t.Deadline.Format("02.01.2006"),
			rating,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(tasksSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := ApplyDefaultFormatting(f, tasksSheet); err != nil {
		return nil, err
	}
	return f, nil
}

// TasksFilename: имя файла выгрузки с ФИО преподавателя и датой.
func TasksFilename(teacherName string, now time.Time) string {
	return sanitizeFileName(fmt.Sprintf("Задания — %s — %s.xlsx", teacherName, now.Format("2006-01-02")))
}

// SaveTemp сохраняет книгу во временный каталог; удалить файл должен вызывающий.
func SaveTemp(f *excelize.File, name string) (string, error) {
	dir, err := os.MkdirTemp("", "helperbot-export-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return path, nil
}
