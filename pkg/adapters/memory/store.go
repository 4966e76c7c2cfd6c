package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Store implements ports.TrailStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.Visit
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Visit),
	}
}

// Append records a visit in memory.
func (s *Store) Append(ctx context.Context, sessionID string, visit domain.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = append(s.data[sessionID], visit)
	return nil
}

// Trail returns a copy of the visits so the caller can't mutate the store.
func (s *Store) Trail(ctx context.Context, sessionID string) ([]domain.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Visit{}, s.data[sessionID]...), nil
}

// Delete removes the trail.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions returns the IDs of sessions with a recorded trail.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
