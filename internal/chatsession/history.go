package chatsession

import "sync"

// History lists past sessions, most recently started first. Saving a session
// that is already listed keeps its position.
type History struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*Session
}

func NewHistory() *History {
	return &History{byID: make(map[string]*Session)}
}

func (h *History) Save(s *Session) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[s.ID]; !ok {
		h.order = append([]string{s.ID}, h.order...)
	}
	h.byID[s.ID] = s
}

func (h *History) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.byID[id]
	return s, ok
}

func (h *History) List() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.byID[id])
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}
