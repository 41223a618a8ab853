// Package taskstest содержит хранилище в памяти и запись уведомлений для тестов.
package taskstest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
)

// MemStore: tasks.Store в памяти с теми же условными переходами, что и в Postgres.
type MemStore struct {
	mu   *sync.Mutex
	d    *memData
	inTx bool

	// FailTaskByID, если задан, возвращается из TaskByID.
	FailTaskByID error
}

type memData struct {
	users    map[int64]models.User
	subjects map[int64]models.Subject
	tasks    map[int64]models.Task
	reminded map[int64]bool
	seq      int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		mu: &sync.Mutex{},
		d: &memData{
			users:    map[int64]models.User{},
			subjects: map[int64]models.Subject{},
			tasks:    map[int64]models.Task{},
			reminded: map[int64]bool{},
		},
	}
}

func (s *MemStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[int64]models.User, len(d.users)),
		subjects: make(map[int64]models.Subject, len(d.subjects)),
		tasks:    make(map[int64]models.Task, len(d.tasks)),
		reminded: make(map[int64]bool, len(d.reminded)),
		seq:      d.seq,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.subjects {
		c.subjects[k] = v
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.reminded {
		c.reminded[k] = v
	}
	return c
}

func (s *MemStore) InTx(ctx context.Context, fn func(tasks.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := s.d.clone()
	if err := fn(&MemStore{mu: s.mu, d: s.d, inTx: true}); err != nil {
		*s.d = *backup
		return err
	}
	return nil
}

func (s *MemStore) next() int64 {
	s.d.seq++
	return s.d.seq
}

func (s *MemStore) UserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	defer s.lock()()
	for _, u := range s.d.users {
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, tasks.ErrNotFound
}

func (s *MemStore) InsertUser(_ context.Context, u *models.User) (bool, error) {
	defer s.lock()()
	for _, existing := range s.d.users {
		if existing.TelegramID == u.TelegramID {
			return false, nil
		}
	}
	u.ID = s.next()
	u.CreatedAt = time.Now()
	s.d.users[u.ID] = *u
	return true, nil
}

func (s *MemStore) usersWhere(keep func(models.User) bool) []models.User {
	var out []models.User
	for _, u := range s.d.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) ListHelpersByRating(context.Context) ([]models.User, error) {
	defer s.lock()()
	out := s.usersWhere(func(u models.User) bool { return u.Role == models.Helper })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].CompletedTasks > out[j].CompletedTasks
	})
	return out, nil
}

func (s *MemStore) teacherMatch(t models.Task, name string) bool {
	return strings.Contains(strings.ToLower(t.TeacherName), strings.ToLower(name))
}

func (s *MemStore) ListStudentsByTeacher(_ context.Context, teacherName string) ([]models.User, error) {
	defer s.lock()()
	return s.usersWhere(func(u models.User) bool {
		if u.Role != models.Student {
			return false
		}
		for _, t := range s.d.tasks {
			if t.StudentID == u.ID && s.teacherMatch(t, teacherName) {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemStore) ListHelpersByTeacher(_ context.Context, teacherName string) ([]models.User, error) {
	defer s.lock()()
	return s.usersWhere(func(u models.User) bool {
		if u.Role != models.Helper {
			return false
		}
		for _, t := range s.d.tasks {
			if t.HelperID != nil && *t.HelperID == u.ID && t.Status == models.StatusCompleted && s.teacherMatch(t, teacherName) {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemStore) IncrementCompleted(_ context.Context, userID int64) error {
	defer s.lock()()
	u, ok := s.d.users[userID]
	if !ok {
		return errors.New("no user")
	}
	u.CompletedTasks++
	s.d.users[userID] = u
	return nil
}

// LockUser: InTx и так держит общий мьютекс, остаётся проверить, что пользователь есть.
func (s *MemStore) LockUser(_ context.Context, userID int64) error {
	defer s.lock()()
	if _, ok := s.d.users[userID]; !ok {
		return tasks.ErrNotFound
	}
	return nil
}

func (s *MemStore) HelperRatingStats(_ context.Context, helperID int64) (count, sum int, err error) {
	defer s.lock()()
	for _, t := range s.d.tasks {
		if t.HelperID != nil && *t.HelperID == helperID && t.Status == models.StatusCompleted && t.Rating != nil {
			count++
			sum += *t.Rating
		}
	}
	return count, sum, nil
}

func (s *MemStore) SetUserRating(_ context.Context, userID int64, rating float64) error {
	defer s.lock()()
	u := s.d.users[userID]
	u.Rating = rating
	s.d.users[userID] = u
	return nil
}

func (s *MemStore) SubjectByID(_ context.Context, id int64) (*models.Subject, error) {
	defer s.lock()()
	subj, ok := s.d.subjects[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	return &subj, nil
}

func (s *MemStore) EnsureSubject(_ context.Context, name string) (*models.Subject, error) {
	defer s.lock()()
	for _, subj := range s.d.subjects {
		if strings.EqualFold(subj.Name, name) {
			return &subj, nil
		}
	}
	subj := models.Subject{ID: s.next(), Name: name, CreatedAt: time.Now()}
	s.d.subjects[subj.ID] = subj
	return &subj, nil
}

func (s *MemStore) ListSubjects(context.Context) ([]models.Subject, error) {
	defer s.lock()()
	var out []models.Subject
	for _, subj := range s.d.subjects {
		out = append(out, subj)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *MemStore) InsertTask(_ context.Context, t *models.Task) (int64, error) {
	defer s.lock()()
	t.ID = s.next()
	t.Status = models.StatusNew
	t.CreatedAt = time.Now().Add(time.Duration(t.ID))
	t.HelperID, t.Solution, t.Rating = nil, nil, nil
	s.d.tasks[t.ID] = *t
	return t.ID, nil
}

// hydrate подтягивает связи так же, как JOIN в Postgres.
func (s *MemStore) hydrate(t models.Task) models.Task {
	t.SubjectName = s.d.subjects[t.SubjectID].Name
	st := s.d.users[t.StudentID]
	t.StudentName, t.StudentChatID = st.Name, st.TelegramID
	t.HelperName, t.HelperChatID = nil, nil
	if t.HelperID != nil {
		h := s.d.users[*t.HelperID]
		name, chat := h.Name, h.TelegramID
		t.HelperName, t.HelperChatID = &name, &chat
	}
	return t
}

func (s *MemStore) TaskByID(_ context.Context, id int64) (*models.Task, error) {
	defer s.lock()()
	if s.FailTaskByID != nil {
		return nil, s.FailTaskByID
	}
	t, ok := s.d.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	t = s.hydrate(t)
	return &t, nil
}

func statusRank(st models.TaskStatus) int {
	switch st {
	case models.StatusNew:
		return 0
	case models.StatusInProgress:
		return 1
	}
	return 2
}

func (s *MemStore) ListTasks(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	defer s.lock()()
	var out []models.Task
	for _, t := range s.d.tasks {
		switch {
		case f.Status != nil && t.Status != *f.Status,
			f.SubjectID != nil && t.SubjectID != *f.SubjectID,
			f.StudentID != nil && t.StudentID != *f.StudentID,
			f.HelperID != nil && (t.HelperID == nil || *t.HelperID != *f.HelperID),
			f.TeacherName != "" && !s.teacherMatch(t, f.TeacherName):
			continue
		}
		out = append(out, s.hydrate(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if f.OrderByStatus && out[i].Status != out[j].Status {
			return statusRank(out[i].Status) < statusRank(out[j].Status)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemStore) update(id int64, cond func(models.Task) bool, apply func(*models.Task)) bool {
	t, ok := s.d.tasks[id]
	if !ok || !cond(t) {
		return false
	}
	apply(&t)
	s.d.tasks[id] = t
	return true
}

func (s *MemStore) ClaimTask(_ context.Context, taskID, helperID int64) (bool, error) {
	defer s.lock()()
	return s.update(taskID,
		func(t models.Task) bool { return t.Status == models.StatusNew },
		func(t *models.Task) { t.Status, t.HelperID = models.StatusInProgress, &helperID },
	), nil
}

func (s *MemStore) AbandonTask(_ context.Context, taskID, helperID int64) (bool, error) {
	defer s.lock()()
	ok := s.update(taskID,
		func(t models.Task) bool {
			return t.Status == models.StatusInProgress && t.HelperID != nil && *t.HelperID == helperID
		},
		func(t *models.Task) { t.Status, t.HelperID = models.StatusNew, nil },
	)
	if ok {
		delete(s.d.reminded, taskID)
	}
	return ok, nil
}

func (s *MemStore) CompleteTask(_ context.Context, taskID, helperID int64, sol models.Solution) (bool, error) {
	defer s.lock()()
	return s.update(taskID,
		func(t models.Task) bool {
			return t.Status == models.StatusInProgress && t.HelperID != nil && *t.HelperID == helperID
		},
		func(t *models.Task) { t.Status, t.Solution = models.StatusCompleted, &sol },
	), nil
}

func (s *MemStore) DeleteTask(_ context.Context, taskID, studentID int64) (bool, error) {
	defer s.lock()()
	t, ok := s.d.tasks[taskID]
	if !ok || t.StudentID != studentID || t.Status != models.StatusNew {
		return false, nil
	}
	delete(s.d.tasks, taskID)
	return true, nil
}

func (s *MemStore) RateTask(_ context.Context, taskID, studentID int64, rating int) (bool, error) {
	defer s.lock()()
	return s.update(taskID,
		func(t models.Task) bool {
			return t.StudentID == studentID && t.Status == models.StatusCompleted && t.Rating == nil
		},
		func(t *models.Task) { t.Rating = &rating },
	), nil
}

func (s *MemStore) DueDeadlineReminders(_ context.Context, day time.Time, limit int) ([]models.Task, error) {
	defer s.lock()()
	var out []models.Task
	for _, t := range s.d.tasks {
		if t.Status != models.StatusInProgress || s.d.reminded[t.ID] {
			continue
		}
		if t.Deadline.Format("2006-01-02") != day.Format("2006-01-02") {
			continue
		}
		out = append(out, s.hydrate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) MarkDeadlineReminded(_ context.Context, ids []int64) error {
	defer s.lock()()
	for _, id := range ids {
		s.d.reminded[id] = true
	}
	return nil
}

// Recorder запоминает уведомления. Err возвращается из каждого Notify.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

type Sent struct {
	ChatID int64
	Event  tasks.Event
}

func (r *Recorder) Notify(_ context.Context, chatID int64, ev tasks.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{ChatID: chatID, Event: ev})
	return r.Err
}

func (r *Recorder) Events() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

var _ tasks.Store = (*MemStore)(nil)
