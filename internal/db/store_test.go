//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/student-helper-bot/internal/db"
	"github.com/Spok95/student-helper-bot/internal/models"
	"github.com/Spok95/student-helper-bot/internal/tasks"
	"github.com/Spok95/student-helper-bot/internal/testutil/testdb"
)

func mustSeedUser(t *testing.T, s *db.Store, tgID int64, name string, role models.Role) *models.User {
	t.Helper()
	group := "ИВТ-21"
	u := &models.User{TelegramID: tgID, Name: name, Role: role}
	if role != models.Teacher {
		u.Group = &group
	}
	ok, err := s.InsertUser(context.Background(), u)
	require.NoError(t, err)
	require.True(t, ok)
	return u
}

func mustSeedTask(t *testing.T, s *db.Store, studentID int64, subject string) int64 {
	t.Helper()
	ctx := context.Background()
	subj, err := s.EnsureSubject(ctx, subject)
	require.NoError(t, err)
	id, err := s.InsertTask(ctx, &models.Task{
		Title:       "Интегралы",
		Description: "Решить 5 задач",
		Deadline:    time.Now().AddDate(0, 0, 3),
		TeacherName: "Иванов И.И.",
		StudentID:   studentID,
		SubjectID:   subj.ID,
	})
	require.NoError(t, err)
	return id
}

func TestStore(t *testing.T) {
	database := testdb.MustStart(t)
	s := db.NewStore(database)
	ctx := context.Background()

	t.Run("insert user twice", func(t *testing.T) {
		testdb.Reset(t, database)
		mustSeedUser(t, s, 100, "Петров Пётр", models.Student)
		ok, err := s.InsertUser(ctx, &models.User{TelegramID: 100, Name: "Другой", Role: models.Helper})
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.UserByTelegramID(ctx, 999)
		assert.ErrorIs(t, err, tasks.ErrNotFound)
	})

	t.Run("task round trip", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Петров Пётр", models.Student)
		id := mustSeedTask(t, s, st.ID, "Математика")

		got, err := s.TaskByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, got.Status)
		assert.Equal(t, "Математика", got.SubjectName)
		assert.Equal(t, "Петров Пётр", got.StudentName)
		assert.Equal(t, int64(1), got.StudentChatID)
		assert.Nil(t, got.HelperID)
		assert.Nil(t, got.Solution)
		assert.Nil(t, got.Rating)

		_, err = s.TaskByID(ctx, id+100)
		assert.ErrorIs(t, err, tasks.ErrNotFound)
	})

	t.Run("concurrent claim has one winner", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		id := mustSeedTask(t, s, st.ID, "Физика")

		const n = 10
		helpers := make([]*models.User, n)
		for i := range helpers {
			helpers[i] = mustSeedUser(t, s, int64(1000+i), "Помощник", models.Helper)
		}

		var wins atomic.Int32
		var g errgroup.Group
		for _, h := range helpers {
			h := h
			g.Go(func() error {
				ok, err := s.ClaimTask(ctx, id, h.ID)
				if ok {
					wins.Add(1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), wins.Load())

		got, err := s.TaskByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, got.Status)
		require.NotNil(t, got.HelperID)
	})

	t.Run("abandon keeps content and frees helper", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		id := mustSeedTask(t, s, st.ID, "Химия")

		ok, err := s.ClaimTask(ctx, id, h.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.AbandonTask(ctx, id, st.ID)
		require.NoError(t, err)
		assert.False(t, ok, "only the assigned helper can abandon")

		ok, err = s.AbandonTask(ctx, id, h.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.TaskByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, got.Status)
		assert.Nil(t, got.HelperID)
		assert.Equal(t, "Интегралы", got.Title)
	})

	t.Run("delete only new", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		id := mustSeedTask(t, s, st.ID, "История")

		_, err := s.ClaimTask(ctx, id, h.ID)
		require.NoError(t, err)
		ok, err := s.DeleteTask(ctx, id, st.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.AbandonTask(ctx, id, h.ID)
		require.NoError(t, err)
		ok, err = s.DeleteTask(ctx, id, st.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("complete and rate in tx", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		id1 := mustSeedTask(t, s, st.ID, "Алгебра")
		id2 := mustSeedTask(t, s, st.ID, "Алгебра")

		for _, id := range []int64{id1, id2} {
			_, err := s.ClaimTask(ctx, id, h.ID)
			require.NoError(t, err)
			err = s.InTx(ctx, func(tx tasks.Store) error {
				ok, err := tx.CompleteTask(ctx, id, h.ID, models.Solution{Text: "ответ 42"})
				if err != nil || !ok {
					return errors.Join(err, errors.New("not completed"))
				}
				return tx.IncrementCompleted(ctx, h.ID)
			})
			require.NoError(t, err)
		}

		for id, r := range map[int64]int{id1: 5, id2: 4} {
			err := s.InTx(ctx, func(tx tasks.Store) error {
				ok, err := tx.RateTask(ctx, id, st.ID, r)
				if err != nil || !ok {
					return errors.Join(err, errors.New("not rated"))
				}
				return tasks.RecomputeRating(ctx, tx, h.ID)
			})
			require.NoError(t, err)
		}

		ok, err := s.RateTask(ctx, id1, st.ID, 1)
		require.NoError(t, err)
		assert.False(t, ok, "rating is set once")

		got, err := s.UserByTelegramID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CompletedTasks)
		assert.InDelta(t, 4.5, got.Rating, 1e-9)

		task, err := s.TaskByID(ctx, id1)
		require.NoError(t, err)
		require.NotNil(t, task.Solution)
		assert.Equal(t, "ответ 42", task.Solution.Text)
	})

	t.Run("concurrent ratings of one helper", func(t *testing.T) {
		testdb.Reset(t, database)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		ratings := []int{3, 5, 4, 4, 2, 5, 3, 4}
		ids := make([]int64, len(ratings))
		students := make([]int64, len(ratings))
		sum := 0
		for i, r := range ratings {
			st := mustSeedUser(t, s, int64(100+i), "Студент", models.Student)
			students[i] = st.ID
			ids[i] = mustSeedTask(t, s, st.ID, "Алгебра")
			_, err := s.ClaimTask(ctx, ids[i], h.ID)
			require.NoError(t, err)
			ok, err := s.CompleteTask(ctx, ids[i], h.ID, models.Solution{Text: "ответ"})
			require.NoError(t, err)
			require.True(t, ok)
			sum += r
		}

		start := make(chan struct{})
		var g errgroup.Group
		for i, r := range ratings {
			i, r := i, r
			g.Go(func() error {
				<-start
				return s.InTx(ctx, func(tx tasks.Store) error {
					ok, err := tx.RateTask(ctx, ids[i], students[i], r)
					if err != nil || !ok {
						return errors.Join(err, errors.New("not rated"))
					}
					return tasks.RecomputeRating(ctx, tx, h.ID)
				})
			})
		}
		close(start)
		require.NoError(t, g.Wait())

		got, err := s.UserByTelegramID(ctx, 2)
		require.NoError(t, err)
		assert.InDelta(t, float64(sum)/float64(len(ratings)), got.Rating, 1e-9)
	})

	t.Run("lock unknown user", func(t *testing.T) {
		testdb.Reset(t, database)
		err := s.InTx(ctx, func(tx tasks.Store) error {
			return tx.LockUser(ctx, 404)
		})
		assert.ErrorIs(t, err, tasks.ErrNotFound)
	})

	t.Run("rolled back tx leaves nothing", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		id := mustSeedTask(t, s, st.ID, "Право")
		_, err := s.ClaimTask(ctx, id, h.ID)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = s.InTx(ctx, func(tx tasks.Store) error {
			if _, err := tx.CompleteTask(ctx, id, h.ID, models.Solution{Text: "x"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.TaskByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, got.Status)
	})

	t.Run("subjects case insensitive under race", func(t *testing.T) {
		testdb.Reset(t, database)
		var g errgroup.Group
		ids := make([]int64, 8)
		for i := range ids {
			i := i
			name := "physics"
			if i%2 == 0 {
				name = "Physics"
			}
			g.Go(func() error {
				subj, err := s.EnsureSubject(ctx, name)
				if err != nil {
					return err
				}
				ids[i] = subj.ID
				return nil
			})
		}
		require.NoError(t, g.Wait())
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		list, err := s.ListSubjects(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("list filters and order", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		first := mustSeedTask(t, s, st.ID, "Физика")
		second := mustSeedTask(t, s, st.ID, "Химия")
		third := mustSeedTask(t, s, st.ID, "Физика")
		_, err := s.ClaimTask(ctx, first, h.ID)
		require.NoError(t, err)

		status := models.StatusNew
		open, err := s.ListTasks(ctx, models.TaskFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, second, open[0].ID)
		assert.Equal(t, third, open[1].ID)

		mine, err := s.ListTasks(ctx, models.TaskFilter{StudentID: &st.ID, OrderByStatus: true})
		require.NoError(t, err)
		require.Len(t, mine, 3)
		assert.Equal(t, first, mine[2].ID)

		byTeacher, err := s.ListTasks(ctx, models.TaskFilter{TeacherName: "Иванов"})
		require.NoError(t, err)
		assert.Len(t, byTeacher, 3)

		for _, pattern := range []string{"%", "_", "Иван_в"} {
			byTeacher, err = s.ListTasks(ctx, models.TaskFilter{TeacherName: pattern})
			require.NoError(t, err)
			assert.Empty(t, byTeacher, pattern)
			students, err := s.ListStudentsByTeacher(ctx, pattern)
			require.NoError(t, err)
			assert.Empty(t, students, pattern)
		}

		counts, err := s.TaskCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts["new"])
		assert.Equal(t, 1, counts["in_progress"])
	})

	t.Run("deadline reminders", func(t *testing.T) {
		testdb.Reset(t, database)
		st := mustSeedUser(t, s, 1, "Студент", models.Student)
		h := mustSeedUser(t, s, 2, "Помощник", models.Helper)
		id := mustSeedTask(t, s, st.ID, "Физика")
		_, err := s.ClaimTask(ctx, id, h.ID)
		require.NoError(t, err)

		task, err := s.TaskByID(ctx, id)
		require.NoError(t, err)

		due, err := s.DueDeadlineReminders(ctx, task.Deadline, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		require.NoError(t, s.MarkDeadlineReminded(ctx, []int64{id}))

		due, err = s.DueDeadlineReminders(ctx, task.Deadline, 10)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}
