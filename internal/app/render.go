package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Spok95/student-helper-bot/internal/export"
	"github.com/Spok95/student-helper-bot/internal/models"
)

const (
	dateLayout = "02.01.2006"
	// описание в карточке списка обрезается, полный текст получает взявший задание
	cardDescriptionLimit = 300
)

// taskCard: карточка задания в списках.
func taskCard(t models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n", t.Title)
	fmt.Fprintf(&b, "📚 Предмет: %s\n", t.SubjectName)
	fmt.Fprintf(&b, "📝 %s\n", shorten(t.Description, cardDescriptionLimit))
	fmt.Fprintf(&b, "👨‍🏫 Преподаватель: %s\n", t.TeacherName)
	fmt.Fprintf(&b, "📅 Срок сдачи: %s\n", t.Deadline.Format(dateLayout))
	fmt.Fprintf(&b, "🔖 Статус: %s", export.StatusTitle(t.Status))
	if t.HelperName != nil {
		fmt.Fprintf(&b, "\n🤝 Помощник: %s", *t.HelperName)
	}
	if t.Rating != nil {
		fmt.Fprintf(&b, "\n⭐ Оценка: %d", *t.Rating)
	}
	if t.Attachment != nil {
		b.WriteString("\n📎 Есть вложение")
	}
	return b.String()
}

// teacherTaskLine: строка для сводки преподавателя.
func teacherTaskLine(t models.Task) string {
	helper := "нет"
	if t.HelperName != nil {
		helper = *t.HelperName
	}
	line := fmt.Sprintf("• %s (%s), студент: %s, помощник: %s, %s, срок %s",
		t.Title, t.SubjectName, t.StudentName, helper,
		strings.ToLower(export.StatusTitle(t.Status)), t.Deadline.Format(dateLayout))
	if t.Rating != nil {
		line += fmt.Sprintf(", оценка %d", *t.Rating)
	}
	return line
}

func leaderboardText(helpers []models.User) string {
	if len(helpers) == 0 {
		return "🏆 Пока нет ни одного помощника."
	}
	var b strings.Builder
	b.WriteString("🏆 Рейтинг помощников:\n")
	for i, h := range helpers {
		fmt.Fprintf(&b, "\n%d. %s · ⭐ %.2f · решено: %d", i+1, h.Name, h.Rating, h.CompletedTasks)
	}
	return b.String()
}

func usersText(title string, users []models.User) string {
	if len(users) == 0 {
		return title + "\n\nСписок пуст."
	}
	var b strings.Builder
	b.WriteString(title + "\n")
	for _, u := range users {
		fmt.Fprintf(&b, "\n• %s", u.Name)
		if u.Group != nil {
			fmt.Fprintf(&b, " (гр. %s)", *u.Group)
		}
		if u.Role == models.Helper {
			fmt.Fprintf(&b, " · ⭐ %.2f · решено: %d", u.Rating, u.CompletedTasks)
		}
	}
	return b.String()
}

// shorten обрезает s до n рун и ставит многоточие.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

// splitText режет произвольный текст на сообщения не длиннее limit байт.
// Строки длиннее limit делятся по границам рун.
func splitText(header, text string, limit int) []string {
	var pieces []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			cut := 0
			for cut < len(line) {
				_, size := utf8.DecodeRuneInString(line[cut:])
				if cut+size > limit {
					break
				}
				cut += size
			}
			pieces = append(pieces, line[:cut])
			line = line[cut:]
		}
		pieces = append(pieces, line)
	}
	return chunkLines(header, pieces, limit)
}

// chunkLines склеивает строки в сообщения не длиннее limit символов.
func chunkLines(header string, lines []string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	cur.WriteString(header)
	for _, l := range lines {
		if cur.Len() > 0 && cur.Len()+len(l)+1 > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(l)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
