package room

import (
	"context"
	"sync"
)

// MemoryStore keeps rooms in process memory.
type MemoryStore struct {
	codes map[string]Room
	lock  sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]Room)}
}

func (s *MemoryStore) Insert(_ context.Context, r Room) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.codes[r.Code]; exists {
		return NewCodeTakenError(r.Code)
	}
	s.codes[r.Code] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (Room, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	r, exists := s.codes[code]
	if !exists {
		return Room{}, NewNotFoundError(code)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, r Room, prevVersion uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	current, exists := s.codes[r.Code]
	if !exists {
		return NewNotFoundError(r.Code)
	}
	if current.Version != prevVersion {
		return NewVersionConflictError(r.Code, prevVersion)
	}
	s.codes[r.Code] = r.Clone()
	return nil
}
