package registry

import (
	"context"
	"sync"
)

// Store persists caller records. Insert must be insert-if-absent: when the
// uid already exists it reports false and leaves the stored record untouched.
type Store interface {
	Insert(ctx context.Context, caller *Caller) (bool, error)
	Exists(ctx context.Context, uid string) (bool, error)
	Get(ctx context.Context, uid string) (*Caller, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore keeps callers in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	callers map[string]Caller
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{callers: make(map[string]Caller)}
}

func (s *MemoryStore) Insert(_ context.Context, caller *Caller) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.callers[caller.UID]; ok {
		return false, nil
	}
	s.callers[caller.UID] = *caller
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, uid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.callers[uid]
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, uid string) (*Caller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caller, ok := s.callers[uid]
	if !ok {
		return nil, ErrCallerNotFound
	}
	return &caller, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.callers), nil
}
