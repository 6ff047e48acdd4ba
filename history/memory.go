package history

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type memoryStore struct {
	mu          sync.RWMutex
	transcripts map[string]*Transcript
}

// NewMemoryStore creates an in-process Store. Contents are lost when the
// process exits.
func NewMemoryStore() Store {
	return &memoryStore{transcripts: make(map[string]*Transcript)}
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.transcripts))
	for id := range s.transcripts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *memoryStore) Load(_ context.Context, id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transcripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, t *Transcript) error {
	if err := validateID(t.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.transcripts[t.ID]; ok && t.CreatedAt.IsZero() {
		t.CreatedAt = existing.CreatedAt
	}
	touch(t)
	s.transcripts[t.ID] = t.Clone()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.transcripts, id)
	}
	return nil
}
