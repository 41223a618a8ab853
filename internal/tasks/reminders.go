package tasks

import (
	"context"
	"fmt"

	"github.com/Spok95/student-helper-bot/internal/models"
)

const reminderBatch = 100

// SendDeadlineReminders напоминает помощнику и студенту о заданиях в работе,
// срок которых наступает завтра. Каждое задание напоминается один раз.
func (s *Service) SendDeadlineReminders(ctx context.Context) (int, error) {
	tomorrow := s.Today().AddDate(0, 0, 1)
	due, err := s.store.DueDeadlineReminders(ctx, tomorrow, reminderBatch)
	if err != nil {
		return 0, fmt.Errorf("due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(due))
	for _, t := range due {
		if t.Status != models.StatusInProgress || t.HelperChatID == nil {
			continue
		}
		helperName := ""
		if t.HelperName != nil {
			helperName = *t.HelperName
		}
		ev := Event{Kind: EventDeadlineSoon, Task: t, HelperName: helperName}
		s.notify(ctx, *t.HelperChatID, ev)
		s.notify(ctx, t.StudentChatID, ev)
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.store.MarkDeadlineReminded(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark reminded: %w", err)
	}
	return len(ids), nil
}
