package app

import "sync"

// ChatLimiter обрабатывает апдейты одного чата строго по очереди.
// Разные чаты друг друга не ждут.
type ChatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{byID: make(map[int64]*chatLock)}
}

// Lock блокирует чат и возвращает функцию разблокировки.
// Запись о чате удаляется, когда его никто не держит и не ждёт.
func (l *ChatLimiter) Lock(chatID int64) func() {
	l.mu.Lock()
	c, ok := l.byID[chatID]
	if !ok {
		c = &chatLock{}
		l.byID[chatID] = c
	}
	c.refs++
	l.mu.Unlock()

	c.mu.Lock()
	return func() {
		c.mu.Unlock()
		l.mu.Lock()
		c.refs--
		if c.refs == 0 {
			delete(l.byID, chatID)
		}
		l.mu.Unlock()
	}
}

func (l *ChatLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}
