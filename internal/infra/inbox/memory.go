package inbox

import (
	"context"
	"sync"
)

// MemoryStore is the inbox used when MongoDB is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return true, nil
	}
	s.seen[eventID] = struct{}{}
	return false, nil
}

func (s *MemoryStore) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}
