package presence

import (
	"context"
	"sync"
	"time"

	"liveqa/internal/qa"
)

// Store is the durable participant record collaborator: one record per
// identity per event, created on first join and bumped on every later one.
type Store interface {
	Upsert(ctx context.Context, eventID string, id qa.Identity, at time.Time) error
	Count(ctx context.Context, eventID string) (int, error)
}

// MemoryStore keeps participant records in process. It backs development
// runs without a database and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]time.Time)}
}

// Upsert creates or bumps the record for id in eventID.
func (s *MemoryStore) Upsert(_ context.Context, eventID string, id qa.Identity, at time.Time) error {
	key := id.Key()
	if key == "" {
		return ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.records[eventID]
	if !ok {
		event = make(map[string]time.Time)
		s.records[eventID] = event
	}
	event[key] = at
	return nil
}

// Count returns the number of records for eventID.
func (s *MemoryStore) Count(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[eventID]), nil
}

// LastActive returns the stored timestamp for id, if any.
func (s *MemoryStore) LastActive(eventID string, id qa.Identity) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.records[eventID][id.Key()]
	return at, ok
}
