package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

// Store keeps committed state for the in-memory driver. Write units are
// serialised through sem and apply their staged changes atomically on commit.
type Store struct {
	mu         sync.RWMutex
	properties map[domainproperty.ID]*domainproperty.Property
	bookings   map[domainbooking.ID]*domainbooking.Booking
	sem        chan struct{}
}

func NewStore() *Store {
	return &Store{
		properties: make(map[domainproperty.ID]*domainproperty.Property),
		bookings:   make(map[domainbooking.ID]*domainbooking.Booking),
		sem:        make(chan struct{}, 1),
	}
}

var ErrUnitClosed = errors.New("memory: unit of work already finished")

// SeedProperty stores a property outside any unit of work; used for fixtures.
func (s *Store) SeedProperty(p domainproperty.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.properties[p.ID] = &cp
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

func (s *Store) property(id domainproperty.ID) (*domainproperty.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (s *Store) booking(id domainbooking.ID) (*domainbooking.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *Store) snapshotBookings() map[domainbooking.ID]*domainbooking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domainbooking.ID]*domainbooking.Booking, len(s.bookings))
	for id, b := range s.bookings {
		out[id] = b.Clone()
	}
	return out
}

func (s *Store) apply(props map[domainproperty.ID]*domainproperty.Property, bookings map[domainbooking.ID]*domainbooking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range props {
		cp := *p
		s.properties[id] = &cp
	}
	for id, b := range bookings {
		s.bookings[id] = b.Clone()
	}
}

// bookingView is the set of bookings visible to a unit: committed state
// overlaid with its own staged writes.
type bookingView map[domainbooking.ID]*domainbooking.Booking

func (v bookingView) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0)
	for _, b := range v {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out
}

func (v bookingView) overlapping(b *domainbooking.Booking) *domainbooking.Booking {
	for _, other := range v {
		if other.ID == b.ID || other.PropertyID != b.PropertyID {
			continue
		}
		if other.Status.HoldsDates() && other.Range.Overlaps(b.Range) {
			return other
		}
	}
	return nil
}

func conflictError(b, other *domainbooking.Booking) error {
	return fmt.Errorf("%w: %s overlaps booking %s on %s", domainbooking.ErrBookingConflict, b.Range, other.ID, b.PropertyID)
}

func dueForCompletion(before time.Time) func(*domainbooking.Booking) bool {
	return func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusConfirmed && b.Range.CheckOut.Before(before)
	}
}
