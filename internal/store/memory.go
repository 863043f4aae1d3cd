package store

import (
	"context"
	"sync"

	"lessonnotes/internal/curriculum"
)

// MemoryStore keeps curriculum and scheme records in process memory,
// preserving first-insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]curriculum.CurriculumRecord
	order      []string
	scheme     map[string]curriculum.SchemeItem
	schemeKeys []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]curriculum.CurriculumRecord),
		scheme:  make(map[string]curriculum.SchemeItem),
	}
}

func (s *MemoryStore) ListCurriculum(_ context.Context, f Filter) ([]curriculum.CurriculumRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]curriculum.CurriculumRecord, 0, len(s.order))
	for _, k := range s.order {
		if r := s.records[k]; f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertCurriculum(_ context.Context, p curriculum.MergePolicy, records []curriculum.CurriculumRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		k := curriculum.MergeKey(r, p)
		if _, ok := s.records[k]; !ok {
			s.order = append(s.order, k)
		}
		s.records[k] = r
	}
	return nil
}

func (s *MemoryStore) ListScheme(_ context.Context) ([]curriculum.SchemeItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]curriculum.SchemeItem, 0, len(s.schemeKeys))
	for _, k := range s.schemeKeys {
		out = append(out, s.scheme[k])
	}
	return out, nil
}

func (s *MemoryStore) UpsertScheme(_ context.Context, items []curriculum.SchemeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		k := curriculum.SchemeKey(it)
		if _, ok := s.scheme[k]; !ok {
			s.schemeKeys = append(s.schemeKeys, k)
		}
		s.scheme[k] = it
	}
	return nil
}
