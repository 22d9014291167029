// Package memstore provides an in-memory implementation of records.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/ashabot/internal/records"
)

// Store holds children and symptom reports in memory. Suitable for dev/testing.
type Store struct {
	mu       sync.RWMutex
	children map[string][]records.Child // user ID -> children in registration order
	reports  []records.SymptomReport    // append-only, creation order
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to timestamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New initializes a new in-memory Store.
func New(opts ...Option) *Store {
	s := &Store{
		children: make(map[string][]records.Child),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddChild stores a child for userID.
func (s *Store) AddChild(_ context.Context, userID, name string, dob time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[userID] = append(s.children[userID], records.Child{
		ID:          records.NewID(),
		UserID:      userID,
		Name:        name,
		DateOfBirth: dob,
		CreatedAt:   s.now(),
	})
	return nil
}

// Children returns a copy of the children registered by userID.
func (s *Store) Children(_ context.Context, userID string) ([]records.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.children[userID]
	if len(src) == 0 {
		return nil, nil
	}
	out := make([]records.Child, len(src))
	copy(out, src)
	return out, nil
}

// LogSymptomReport appends a report.
func (s *Store) LogSymptomReport(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, records.SymptomReport{
		ID:        records.NewID(),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now(),
	})
	return nil
}

// CountRecentReports counts reports at or after since matching any keyword.
func (s *Store) CountRecentReports(_ context.Context, since time.Time, keywords []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.reports {
		r := &s.reports[i]
		if r.CreatedAt.Before(since) {
			continue
		}
		if records.ContainsAny(r.Text, keywords) {
			n++
		}
	}
	return n, nil
}
