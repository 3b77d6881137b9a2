package memory

import (
	"context"
	"sync"

	"cbt-exam-runner/internal/domain"
)

// HistoryStore keeps score records for the lifetime of the process.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns entries most recent first.
func (s *HistoryStore) List(_ context.Context) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoryEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
