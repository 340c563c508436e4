package memory

import (
	"context"
	"sync"
	"time"

	"staybook/internal/app/middleware"
)

// IdempotencyStore keeps command results in memory for ttl. Expired entries
// are ignored on read and swept at most once per ttl on write, so the map
// stays bounded by the traffic of two ttl windows. A zero ttl keeps results
// forever.
type IdempotencyStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	items     map[string]idempotencyEntry
}

type idempotencyEntry struct {
	rec       middleware.IdempotencyRecord
	expiresAt time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]idempotencyEntry),
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if s.expired(e, s.now()) {
		delete(s.items, key)
		return middleware.IdempotencyRecord{}, false, nil
	}
	return e.rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.ttl > 0 && now.Sub(s.lastSweep) >= s.ttl {
		for k, e := range s.items {
			if s.expired(e, now) {
				delete(s.items, k)
			}
		}
		s.lastSweep = now
	}
	e := idempotencyEntry{rec: rec}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.items[rec.Key] = e
	return nil
}

func (s *IdempotencyStore) expired(e idempotencyEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
