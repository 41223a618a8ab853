package models

import "time"

type TaskStatus string

const (
	StatusNew        TaskStatus = "new"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// FileKind говорит, как Telegram отдаёт файл, фото или документ.
type FileKind string

const (
	FilePhoto    FileKind = "photo"
	FileDocument FileKind = "document"
)

// FileRef: непрозрачная ссылка на файл Telegram.
type FileRef struct {
	ID   string   `db:"file_id"`
	Name string   `db:"file_name"`
	Kind FileKind `db:"file_kind"`
}

// Solution: текст, файл или и то и другое.
type Solution struct {
	Text string
	File *FileRef
}

func (s Solution) Empty() bool {
	return s.Text == "" && (s.File == nil || s.File.ID == "")
}

// Task вместе с явно подтянутыми связями (предмет, студент, помощник).
type Task struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Status      TaskStatus `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	Deadline    time.Time  `db:"deadline"`
	Attachment  *FileRef
	Solution    *Solution
	Rating      *int   `db:"rating"`
	TeacherName string `db:"teacher_name"`

	SubjectID   int64  `db:"subject_id"`
	SubjectName string `db:"subject_name"`

	StudentID     int64  `db:"student_id"`
	StudentName   string `db:"student_name"`
	StudentChatID int64  `db:"student_telegram_id"`

	HelperID     *int64  `db:"helper_id"`
	HelperName   *string `db:"helper_name"`
	HelperChatID *int64  `db:"helper_telegram_id"`
}

// TaskFilter: предикаты выборки; пустые поля не фильтруют.
type TaskFilter struct {
	Status        *TaskStatus
	SubjectID     *int64
	StudentID     *int64
	HelperID      *int64
	TeacherName   string // подстрока, без учёта регистра
	OrderByStatus bool
}
