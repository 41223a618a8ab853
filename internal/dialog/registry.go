package dialog

import "sync"

// Session: активный многошаговый диалог одного чата.
type Session interface {
	Name() string
	Intro() Reply
	Handle(in Input) (Reply, bool)
}

// Registry хранит не больше одной сессии на чат.
type Registry struct {
	mu sync.Mutex
	m  map[int64]Session
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[int64]Session)}
}

// Start заменяет предыдущую сессию чата, если она была.
func (r *Registry) Start(chatID int64, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[chatID] = s
}

func (r *Registry) Get(chatID int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[chatID]
	return s, ok
}

// Finish убирает сессию, только если в чате всё ещё она.
func (r *Registry) Finish(chatID int64, s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.m[chatID]; ok && cur == s {
		delete(r.m, chatID)
		return true
	}
	return false
}

// Cancel сбрасывает любую сессию чата. false: сбрасывать было нечего.
func (r *Registry) Cancel(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[chatID]; !ok {
		return false
	}
	delete(r.m, chatID)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
